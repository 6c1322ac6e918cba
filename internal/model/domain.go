package model

// Owned is implemented by every per-domain record carrying an owning-entity
// foreign key.
type Owned interface {
	Owner() string
	SetOwner(id string)
}

// IdentityRecord is one row of the object table.
type IdentityRecord struct {
	ObjectID        string   `json:"object_id,omitempty"`
	ObjectType      string   `json:"object_type,omitempty"`
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	CategoryCode    string   `json:"category_code,omitempty"`
	SubcategoryCode string   `json:"subcategory_code,omitempty"`
	Status          string   `json:"status,omitempty"`
	LegacyIDs       []string `json:"legacy_ids,omitempty"`
}

// Row returns the object table row.
func (r *IdentityRecord) Row() map[string]any {
	row := map[string]any{"name": r.Name}
	putString(row, "id", r.ObjectID)
	putString(row, "object_type", r.ObjectType)
	putString(row, "description", r.Description)
	putString(row, "summary", r.Summary)
	putString(row, "category_code", r.CategoryCode)
	putString(row, "subcategory_code", r.SubcategoryCode)
	putString(row, "status", r.Status)
	if len(r.LegacyIDs) > 0 {
		row["legacy_ids"] = r.LegacyIDs
	}
	return row
}

// LocationRecord is the one-to-one address and coordinates of an object.
type LocationRecord struct {
	ObjectID  string   `json:"object_id,omitempty"`
	Address1  string   `json:"address1,omitempty"`
	Address2  string   `json:"address2,omitempty"`
	Postcode  string   `json:"postcode,omitempty"`
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
	CodeINSEE string   `json:"code_insee,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	// Accessible is set when the source states wheelchair access either way.
	Accessible *bool `json:"accessible,omitempty"`
}

func (r *LocationRecord) Owner() string      { return r.ObjectID }
func (r *LocationRecord) SetOwner(id string) { r.ObjectID = id }

// HasData reports whether anything beyond the owner is set.
func (r *LocationRecord) HasData() bool {
	return r.Address1 != "" || r.Address2 != "" || r.Postcode != "" || r.City != "" ||
		r.Country != "" || r.CodeINSEE != "" || r.Latitude != nil || r.Longitude != nil ||
		r.Accessible != nil
}

// Row returns the object_location row.
func (r *LocationRecord) Row() map[string]any {
	row := map[string]any{"object_id": r.ObjectID}
	putString(row, "address1", r.Address1)
	putString(row, "address2", r.Address2)
	putString(row, "postcode", r.Postcode)
	putString(row, "city", r.City)
	putString(row, "country", r.Country)
	putString(row, "code_insee", r.CodeINSEE)
	if r.Latitude != nil {
		row["latitude"] = *r.Latitude
	}
	if r.Longitude != nil {
		row["longitude"] = *r.Longitude
	}
	if r.Accessible != nil {
		row["accessible"] = *r.Accessible
	}
	return row
}

// ContactChannelRecord is one phone, email, website, or booking channel.
type ContactChannelRecord struct {
	ObjectID  string `json:"object_id,omitempty"`
	Kind      string `json:"kind"`
	Value     string `json:"value" validate:"required"`
	IsPrimary bool   `json:"is_primary,omitempty"`
	Position  int    `json:"position,omitempty"`
}

func (r *ContactChannelRecord) Owner() string      { return r.ObjectID }
func (r *ContactChannelRecord) SetOwner(id string) { r.ObjectID = id }

// Row returns the contact_channel row without its kind reference.
func (r *ContactChannelRecord) Row() map[string]any {
	return map[string]any{
		"object_id":  r.ObjectID,
		"value":      r.Value,
		"is_primary": r.IsPrimary,
		"position":   r.Position,
	}
}

// AmenityLinkRecord links an object to an amenity.
type AmenityLinkRecord struct {
	ObjectID    string `json:"object_id,omitempty"`
	AmenityCode string `json:"amenity_code"`
	AmenityName string `json:"amenity_name,omitempty"`
	FamilyCode  string `json:"family_code,omitempty"`
}

func (r *AmenityLinkRecord) Owner() string      { return r.ObjectID }
func (r *AmenityLinkRecord) SetOwner(id string) { r.ObjectID = id }

// MediaRecord is one image, video, or document attached to an object.
type MediaRecord struct {
	ObjectID    string         `json:"object_id,omitempty"`
	URL         string         `json:"url"`
	MediaType   string         `json:"media_type,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Credit      string         `json:"credit,omitempty"`
	IsMain      bool           `json:"is_main,omitempty"`
	Position    int            `json:"position,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (r *MediaRecord) Owner() string      { return r.ObjectID }
func (r *MediaRecord) SetOwner(id string) { r.ObjectID = id }

// Row returns the media row without its type reference.
func (r *MediaRecord) Row() map[string]any {
	row := map[string]any{
		"object_id": r.ObjectID,
		"url":       r.URL,
		"is_main":   r.IsMain,
		"position":  r.Position,
	}
	putString(row, "title", r.Title)
	putString(row, "description", r.Description)
	putString(row, "credit", r.Credit)
	if len(r.Metadata) > 0 {
		row["metadata"] = r.Metadata
	}
	return row
}

// LanguageLinkRecord links an object to a spoken language.
type LanguageLinkRecord struct {
	ObjectID     string `json:"object_id,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	LanguageName string `json:"language_name,omitempty"`
	Proficiency  string `json:"proficiency,omitempty"`
}

func (r *LanguageLinkRecord) Owner() string      { return r.ObjectID }
func (r *LanguageLinkRecord) SetOwner(id string) { r.ObjectID = id }

// PaymentMethodRecord links an object to an accepted payment method.
type PaymentMethodRecord struct {
	ObjectID string `json:"object_id,omitempty"`
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
}

func (r *PaymentMethodRecord) Owner() string      { return r.ObjectID }
func (r *PaymentMethodRecord) SetOwner(id string) { r.ObjectID = id }

// EnvironmentTagRecord links an object to a surroundings tag (sea, mountain, town).
type EnvironmentTagRecord struct {
	ObjectID string `json:"object_id,omitempty"`
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
}

func (r *EnvironmentTagRecord) Owner() string      { return r.ObjectID }
func (r *EnvironmentTagRecord) SetOwner(id string) { r.ObjectID = id }

// PetPolicyRecord is the single pet policy of an object.
type PetPolicyRecord struct {
	ObjectID   string `json:"object_id,omitempty"`
	Accepted   *bool  `json:"accepted,omitempty"`
	Conditions string `json:"conditions,omitempty"`
}

func (r *PetPolicyRecord) Owner() string      { return r.ObjectID }
func (r *PetPolicyRecord) SetOwner(id string) { r.ObjectID = id }

// Row returns the object_pet_policy row.
func (r *PetPolicyRecord) Row() map[string]any {
	row := map[string]any{"object_id": r.ObjectID}
	if r.Accepted != nil {
		row["accepted"] = *r.Accepted
	}
	putString(row, "conditions", r.Conditions)
	return row
}

// ProviderRecord is a person operating an establishment.
type ProviderRecord struct {
	ObjectID    string   `json:"object_id,omitempty"`
	ProviderID  string   `json:"provider_id,omitempty"`
	FirstName   string   `json:"first_name" validate:"required"`
	LastName    string   `json:"last_name" validate:"required"`
	Gender      string   `json:"gender,omitempty"`
	Email       string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string   `json:"phone,omitempty"`
	Function    string   `json:"function,omitempty"`
	Newsletter  *bool    `json:"newsletter,omitempty"`
	Address1    string   `json:"address1,omitempty"`
	Postcode    string   `json:"postcode,omitempty"`
	City        string   `json:"city,omitempty"`
	LieuDit     string   `json:"lieu_dit,omitempty"`
	DateOfBirth string   `json:"date_of_birth,omitempty"`
	Revenue     string   `json:"revenue,omitempty"`
	LegacyIDs   []string `json:"legacy_ids,omitempty"`
}

func (r *ProviderRecord) Owner() string      { return r.ObjectID }
func (r *ProviderRecord) SetOwner(id string) { r.ObjectID = id }

// Row returns the provider row. The owning object is linked separately.
func (r *ProviderRecord) Row() map[string]any {
	row := map[string]any{
		"first_name": r.FirstName,
		"last_name":  r.LastName,
	}
	putString(row, "id", r.ProviderID)
	putString(row, "gender", r.Gender)
	putString(row, "email", r.Email)
	putString(row, "phone", r.Phone)
	putString(row, "function", r.Function)
	if r.Newsletter != nil {
		row["newsletter"] = *r.Newsletter
	}
	putString(row, "address1", r.Address1)
	putString(row, "postcode", r.Postcode)
	putString(row, "city", r.City)
	putString(row, "lieu_dit", r.LieuDit)
	putString(row, "date_of_birth", r.DateOfBirth)
	putString(row, "revenue", r.Revenue)
	if len(r.LegacyIDs) > 0 {
		row["legacy_ids"] = r.LegacyIDs
	}
	return row
}

// ScheduleRecord is one opening-hours period.
type ScheduleRecord struct {
	ObjectID            string   `json:"object_id,omitempty"`
	Days                []string `json:"days"`
	AMStart             string   `json:"am_start,omitempty"`
	AMFinish            string   `json:"am_finish,omitempty"`
	PMStart             string   `json:"pm_start,omitempty"`
	PMFinish            string   `json:"pm_finish,omitempty"`
	ReservationRequired *bool    `json:"reservation_required,omitempty"`
	LegacyID            string   `json:"legacy_id,omitempty"`
}

func (r *ScheduleRecord) Owner() string      { return r.ObjectID }
func (r *ScheduleRecord) SetOwner(id string) { r.ObjectID = id }

// Row returns the object_schedule row without its id.
func (r *ScheduleRecord) Row() map[string]any {
	row := map[string]any{
		"object_id": r.ObjectID,
		"days":      r.Days,
	}
	putString(row, "am_start", r.AMStart)
	putString(row, "am_finish", r.AMFinish)
	putString(row, "pm_start", r.PMStart)
	putString(row, "pm_finish", r.PMFinish)
	if r.ReservationRequired != nil {
		row["reservation_required"] = *r.ReservationRequired
	}
	putString(row, "legacy_id", r.LegacyID)
	return row
}

func putString(row map[string]any, key, value string) {
	if value != "" {
		row[key] = value
	}
}
