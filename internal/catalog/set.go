package catalog

import "fmt"

// platformAlternate is the client platform id served the alternate catalog.
const platformAlternate = "2"

// Set holds the catalog per client platform.
type Set struct {
	Primary   *Catalog
	Alternate *Catalog
}

// LoadSet loads the primary catalog and, if alternatePath is set, the alternate one.
// Without an alternate, every platform gets the primary catalog.
func LoadSet(primaryPath, alternatePath string) (*Set, error) {
	primary, err := Load(primaryPath)
	if err != nil {
		return nil, err
	}
	s := &Set{Primary: primary, Alternate: primary}
	if alternatePath == "" {
		return s, nil
	}
	alt, err := Load(alternatePath)
	if err != nil {
		return nil, err
	}
	if alt.Version() != primary.Version() {
		return nil, fmt.Errorf("alternate catalog version %s differs from primary %s", alt.Version(), primary.Version())
	}
	s.Alternate = alt
	return s, nil
}

// ForPlatform selects the catalog for a client platform id such as "0,1,1" or "2".
func (s *Set) ForPlatform(platformID string) *Catalog {
	if len(platformID) > 0 && platformID[:1] == platformAlternate {
		return s.Alternate
	}
	return s.Primary
}

// Version is the shared content version.
func (s *Set) Version() string {
	return s.Primary.Version()
}
