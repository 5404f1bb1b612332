package providers

import "strings"

// ProviderRef is one entry of a provider list: a backend name plus an
// optional key alias, e.g. "openai:work".
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList parses "name[:alias]" entries separated by "|" or ",".
// Names are lower-cased and repeated entries are dropped. An empty list or
// "none" yields no providers.
func ParseProviderList(raw string) []ProviderRef {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]ProviderRef, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, "none") {
			continue
		}
		name, alias, _ := strings.Cut(p, ":")
		ref := ProviderRef{
			Name:     strings.ToLower(strings.TrimSpace(name)),
			KeyAlias: strings.TrimSpace(alias),
		}
		if ref.Name == "" {
			continue
		}
		ref.Raw = ref.Name
		if ref.KeyAlias != "" {
			ref.Raw += ":" + ref.KeyAlias
		}
		if _, dup := seen[ref.Raw]; dup {
			continue
		}
		seen[ref.Raw] = struct{}{}
		out = append(out, ref)
	}
	return out
}
