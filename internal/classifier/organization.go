package classifier

import "strings"

// DefaultOrgGroup is assigned when neither organization table matches
const DefaultOrgGroup = "other"

type OrganizationClassifier struct {
	exact   []OrgEntry
	contain []OrgEntry
}

func NewOrganizationClassifier(exact, contain []OrgEntry) *OrganizationClassifier {
	return &OrganizationClassifier{exact: exact, contain: contain}
}

// Classify maps an agency name to its group: exact match first, then containment
func (c *OrganizationClassifier) Classify(name string) string {
	trimmed := strings.TrimSpace(name)
	for _, row := range c.exact {
		if trimmed == row.Keyword {
			return row.Group
		}
	}
	for _, row := range c.contain {
		if strings.Contains(name, row.Keyword) {
			return row.Group
		}
	}
	return DefaultOrgGroup
}
