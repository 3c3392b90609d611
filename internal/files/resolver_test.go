package files

import "testing"

func TestDownloadURL(t *testing.T) {
	r := NewResolver("https://files.example.org/")

	cases := []struct {
		ref  string
		want string
	}{
		{"", ""},
		{"https://other.org/data.csv", "https://other.org/data.csv"},
		{"http://other.org/data.csv", "http://other.org/data.csv"},
		{"uploads/data.csv", "https://files.example.org/uploads/data.csv"},
		{"/uploads/data.csv", "https://files.example.org/uploads/data.csv"},
		{"  uploads/data.csv  ", "https://files.example.org/uploads/data.csv"},
	}
	for _, c := range cases {
		if got := r.DownloadURL(c.ref); got != c.want {
			t.Fatalf("DownloadURL(%q) = %q, want %q", c.ref, got, c.want)
		}
	}
}

func TestDownloadURLNoDomain(t *testing.T) {
	r := NewResolver("")
	if got := r.DownloadURL("uploads/data.csv"); got != "uploads/data.csv" {
		t.Fatalf("got %q", got)
	}
}
