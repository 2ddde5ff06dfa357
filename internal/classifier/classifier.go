package classifier

import "bidforecast/server/internal/models"

// Classifier attaches vehicle columns and the organization group to listings
type Classifier struct {
	categories *CategoryClassifier
	orgs       *OrganizationClassifier
}

func NewClassifier(categories *CategoryClassifier, orgs *OrganizationClassifier) *Classifier {
	return &Classifier{categories: categories, orgs: orgs}
}

// FromTables builds a classifier over loaded keyword tables
func FromTables(tables *Tables) *Classifier {
	return NewClassifier(
		NewCategoryClassifier(tables.Categories, tables.Brands),
		NewOrganizationClassifier(tables.OrgExact, tables.OrgContain),
	)
}

func (c *Classifier) Classify(listing models.Listing) models.ClassifiedListing {
	return models.ClassifiedListing{
		Listing:           listing,
		OrganizationGroup: c.orgs.Classify(listing.Organization),
		Vehicle:           c.categories.Classify(listing.MainCategory, listing.MidCategory, listing.Title),
	}
}
