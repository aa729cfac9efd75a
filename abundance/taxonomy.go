package abundance

import (
	"fmt"
	"strings"
)

// OTUName derives a short display name from Greengenes-style ranks such as
// "g__Bacteroides" or "s__fragilis". A genus gives "Genus_species" (species
// "spp." when unknown); a species without genus gives the species; anything
// else gives "Unclassified_<deepest named rank>". Ranks of three characters
// or fewer ("g__") are unnamed. Returns "" when no rank is named.
func OTUName(ranks []string) string {
	species := "spp."
	for i := len(ranks) - 1; i >= 0; i-- {
		lvl := ranks[i]
		if len(lvl) <= 3 {
			continue
		}

		switch {
		case strings.HasPrefix(lvl, "s"):
			species = rankName(lvl)
		case strings.HasPrefix(lvl, "g"):
			return fmt.Sprintf("%s_%s", rankName(lvl), species)
		case species != "spp.":
			return species
		default:
			return "Unclassified_" + rankName(lvl)
		}
	}

	if species != "spp." {
		return species
	}

	return ""
}

// rankName drops the "x__" prefix.
func rankName(lvl string) string {
	parts := strings.Split(lvl, "_")
	if len(parts) < 3 {
		return lvl
	}

	return strings.Join(parts[2:], "_")
}

// DisplayName is the OTUName of a feature's taxonomy, falling back to the
// feature ID.
func (t *Table) DisplayName(feature string) string {
	if name := OTUName(t.Taxonomy(feature)); name != "" {
		return name
	}

	return feature
}
