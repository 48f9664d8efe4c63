package lookup

import "strings"

// Definition describes one reference table. Key is the table and procedure
// prefix, Route the URL segment used by the HTTP layer.
type Definition struct {
	Key       string
	Route     string
	Plural    string
	Label     string
	Orderable bool
	Cached    bool
}

// PluralRoute is the segment used by the list endpoint (get-all-<plural>-from-db).
func (d Definition) PluralRoute() string {
	if d.Plural != "" {
		return d.Plural
	}
	return d.Route + "s"
}

var (
	CenterType                  = Definition{Key: "center_type", Route: "center-type", Label: "Center type", Orderable: true, Cached: true}
	DeliveryType                = Definition{Key: "delivery_type", Route: "delivery-type", Label: "Delivery type", Orderable: true, Cached: true}
	EducationLevel              = Definition{Key: "education_level", Route: "education-level", Label: "Education level", Orderable: true, Cached: true}
	Facility                    = Definition{Key: "facility", Route: "facility", Plural: "facilities", Label: "Facility", Cached: true}
	FederalFundingCertification = Definition{Key: "federal_funding_certification", Route: "federal-funding-certification", Label: "Federal funding certification", Cached: true}
	FoodAuthority               = Definition{Key: "food_authority", Route: "food-authority", Plural: "food-authorities", Label: "Food authority", Cached: true}
	GroupType                   = Definition{Key: "group_type", Route: "group-type", Label: "Group type", Orderable: true, Cached: true}
	KitchenType                 = Definition{Key: "kitchen_type", Route: "kitchen-type", Label: "Kitchen type", Orderable: true, Cached: true}
	MealType                    = Definition{Key: "meal_type", Route: "meal-type", Label: "Meal type", Orderable: true, Cached: true}
	OperatingPeriod             = Definition{Key: "operating_period", Route: "operating-period", Label: "Operating period", Orderable: true, Cached: true}
	OperatingPolicy             = Definition{Key: "operating_policy", Route: "operating-policy", Plural: "operating-policies", Label: "Operating policy", Cached: true}
	OptionSelection             = Definition{Key: "option_selection", Route: "option-selection", Label: "Option selection", Orderable: true, Cached: true}
	OrganizationType            = Definition{Key: "organization_type", Route: "organization-type", Label: "Organization type", Cached: true}
	Permission                  = Definition{Key: "permission", Route: "permission", Label: "Permission"}
	SponsorType                 = Definition{Key: "sponsor_type", Route: "sponsor-type", Label: "Sponsor type", Orderable: true, Cached: true}
	AlternativeCommunication    = Definition{Key: "alternative_communication", Route: "alternative-communication", Label: "Alternative communication", Cached: true}
	AgencyStatus                = Definition{Key: "agency_status", Route: "agency-status", Plural: "agency-statuses", Label: "Agency status", Orderable: true, Cached: true}
)

// All lists every reference table exposed by the API.
var All = []Definition{
	CenterType,
	DeliveryType,
	EducationLevel,
	Facility,
	FederalFundingCertification,
	FoodAuthority,
	GroupType,
	KitchenType,
	MealType,
	OperatingPeriod,
	OperatingPolicy,
	OptionSelection,
	OrganizationType,
	Permission,
	SponsorType,
	AlternativeCommunication,
	AgencyStatus,
}

// ByKey finds a definition by its table key.
func ByKey(key string) (Definition, bool) {
	key = strings.TrimSpace(key)
	for _, d := range All {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}
