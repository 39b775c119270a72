package contacts

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "+49 170 1234567", want: "+491701234567"},
		{in: "491701234567", want: "+491701234567"},
		{in: "+1 (415) 555-0100", want: "+14155550100"},
		{in: "+1.415.555.0100", want: "+14155550100"},
		{in: "12345", wantErr: true},          // too short
		{in: "+12345678901234567", wantErr: true}, // too long
		{in: "+49abc1234567", wantErr: true},  // letters
		{in: "49+1701234567", wantErr: true},  // plus not leading
	}

	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizePhone(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
