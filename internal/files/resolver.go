package files

import "strings"

// Resolver turns the file references stored on statements into absolute
// download URLs. Absolute references pass through; relative ones are joined
// to the configured domain.
type Resolver struct {
	Domain string
}

func NewResolver(domain string) Resolver {
	return Resolver{Domain: strings.TrimRight(domain, "/")}
}

func (r Resolver) DownloadURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if r.Domain == "" {
		return ref
	}
	return r.Domain + "/" + strings.TrimLeft(ref, "/")
}
