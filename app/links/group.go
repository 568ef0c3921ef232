package links

import (
	"slices"
)

// Groups maps an agency name to its links. Links without agencies are listed
// under Unattributed.
type Groups map[string][]Link

// Names returns the group names in lexical order with Unattributed last.
func (g Groups) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		if name != Unattributed {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := g[Unattributed]; ok {
		names = append(names, Unattributed)
	}
	return names
}

func (g Groups) Count() int {
	total := 0
	for _, links := range g {
		total += len(links)
	}
	return total
}

// GroupByAgency lists every link under each of its agencies. With an agency
// filter only the filtered agencies get groups and Unattributed is omitted.
func GroupByAgency(links []Link, c Criteria) Groups {
	filter := c.agencySet()
	groups := make(Groups)

	for _, link := range links {
		if len(link.AgencyNames) == 0 {
			if len(filter) == 0 {
				groups[Unattributed] = append(groups[Unattributed], link)
			}
			continue
		}

		for _, name := range link.AgencyNames {
			if len(filter) > 0 {
				if _, ok := filter[CanonicalAgency(name)]; !ok {
					continue
				}
			}
			groups[name] = append(groups[name], link)
		}
	}

	return groups
}
