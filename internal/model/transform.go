package model

// The ...Transformation types are the expected shapes a classification
// service fills for each agent's fragment.

// IdentityTransformation is the identity agent's extraction.
type IdentityTransformation struct {
	Identity IdentityRecord `json:"identity"`
}

// LocationTransformation is the location agent's extraction.
type LocationTransformation struct {
	Locations []LocationRecord `json:"locations"`
}

// ContactTransformation is the contact agent's extraction.
type ContactTransformation struct {
	Channels []ContactChannelRecord `json:"channels"`
}

// AmenityTransformation is the amenities agent's extraction.
type AmenityTransformation struct {
	Amenities []AmenityLinkRecord `json:"amenities"`
}

// MediaTransformation is the media agent's extraction.
type MediaTransformation struct {
	Media []MediaRecord `json:"media"`
}

// LanguageTransformation is the languages agent's extraction.
type LanguageTransformation struct {
	Languages []LanguageLinkRecord `json:"languages"`
}

// PaymentMethodTransformation is the payments agent's extraction.
type PaymentMethodTransformation struct {
	PaymentMethods []PaymentMethodRecord `json:"payment_methods"`
}

// EnvironmentTagTransformation is the environment agent's extraction.
type EnvironmentTagTransformation struct {
	EnvironmentTags []EnvironmentTagRecord `json:"environment_tags"`
}

// PetPolicyTransformation is the pet policy agent's extraction. A nil
// PetPolicy means the fragment carried no pet information.
type PetPolicyTransformation struct {
	PetPolicy *PetPolicyRecord `json:"pet_policy"`
}

// ProviderTransformation is the providers agent's extraction.
type ProviderTransformation struct {
	Providers []ProviderRecord `json:"providers"`
}

// ScheduleTransformation is the schedule agent's extraction.
type ScheduleTransformation struct {
	Schedules []ScheduleRecord `json:"schedules"`
}
