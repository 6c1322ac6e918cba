package classify

import (
	"strings"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/normalize"
)

type keywordSet struct {
	agent    string
	keywords []string
}

// fieldKeywords is checked in order; the first agent with a matching
// keyword wins.
var fieldKeywords = []keywordSet{
	{model.AgentIdentity, []string{"name", "title", "category", "sub_category", "legacy", "description", "summary", "type", "object_id", "establishment_id", "status"}},
	{model.AgentLocation, []string{"address", "postal", "zip", "city", "country", "latitude", "longitude", "gps", "insee", "accessib", "handicap"}},
	{model.AgentContact, []string{"phone", "email", "website", "url", "booking", "contact", "social"}},
	{model.AgentAmenities, []string{"amenitie", "equipment", "service", "facility"}},
	{model.AgentMedia, []string{"photo", "image", "video", "media", "picture", "logo"}},
	{model.AgentProviders, []string{"provider", "prestataire", "presta"}},
	{model.AgentSchedule, []string{"horaire", "schedule", "jours", "opening", "am_start", "am_finish", "pm_start", "pm_finish"}},
	{model.AgentLanguages, []string{"langue", "language"}},
	{model.AgentPayments, []string{"paiement", "payment"}},
	{model.AgentEnvironment, []string{"environment", "environnement", "localisation"}},
	{model.AgentPetPolicy, []string{"pet", "animaux", "animal"}},
}

// attributeAliases renames source fields to destination attributes.
var attributeAliases = map[string]map[string]string{
	model.AgentIdentity: {
		"establishment_name": "name",
		"legacy_ids":         "legacy_ids",
		"establishment_id":   "object_id",
	},
	model.AgentLocation: {
		"address_line1": "address1",
		"address_line2": "address2",
		"postal_code":   "postcode",
		"zip":           "postcode",
	},
}

// TargetAttribute returns the attribute a field maps to within an agent's
// section.
func TargetAttribute(agent, field string) string {
	if aliases, ok := attributeAliases[agent]; ok {
		if attr, ok := aliases[field]; ok {
			return attr
		}
	}
	return normalize.NormalizeCode(field)
}

type labelCode struct {
	label string
	code  string
}

// objectTypes maps category keywords to object type prefixes.
var objectTypes = []labelCode{
	{"hotel", "HOT"},
	{"hebergement", "HLO"},
	{"lodging", "HLO"},
	{"restaurant", "RES"},
	{"food", "RES"},
	{"activity", "ASC"},
	{"visite", "LOI"},
	{"event", "FMA"},
	{"evenement", "FMA"},
	{"shop", "COM"},
	{"commerce", "COM"},
	{"itineraire", "ITI"},
	{"itinerary", "ITI"},
	{"organization", "ORG"},
	{"office", "ORG"},
}

// DefaultObjectType is used when a category matches nothing.
const DefaultObjectType = "ORG"

// ObjectTypeFor derives the three-letter object type from a category label.
func ObjectTypeFor(category string) string {
	lowered := strings.ToLower(normalize.StripAccents(category))
	if lowered == "" {
		return DefaultObjectType
	}
	for _, oc := range objectTypes {
		if strings.Contains(lowered, oc.label) {
			return oc.code
		}
	}
	return DefaultObjectType
}

var contactKinds = []labelCode{
	{"phone", "phone"},
	{"mobile", "phone"},
	{"telephone", "phone"},
	{"portable", "phone"},
	{"email", "email"},
	{"courriel", "email"},
	{"mail", "email"},
	{"website", "website"},
	{"site", "website"},
	{"booking", "booking"},
	{"reservation", "booking"},
	{"facebook", "facebook"},
	{"instagram", "instagram"},
	{"twitter", "twitter"},
	{"tiktok", "tiktok"},
	{"youtube", "youtube"},
	{"whatsapp", "whatsapp"},
	{"linkedin", "linkedin"},
	{"pinterest", "pinterest"},
}

var socialKinds = map[string]bool{
	"facebook":  true,
	"instagram": true,
	"twitter":   true,
	"tiktok":    true,
	"youtube":   true,
	"whatsapp":  true,
	"linkedin":  true,
	"pinterest": true,
}

// IsSocialKind reports whether a contact kind is a social network. Social
// channels are not stored as contact channels.
func IsSocialKind(kind string) bool {
	return socialKinds[kind]
}

// ContactKindFor infers a channel kind from a key, falling back to the shape
// of the value.
func ContactKindFor(key string, value string) string {
	code := normalize.NormalizeCode(key)
	if code == "x" {
		return "twitter"
	}
	for _, lc := range contactKinds {
		if strings.Contains(code, lc.label) {
			return lc.code
		}
	}
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.Contains(v, "@"):
		return "email"
	case strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") || strings.HasPrefix(v, "www."):
		for kind := range socialKinds {
			if strings.Contains(v, kind+".") {
				return kind
			}
		}
		return "website"
	case looksLikePhone(v):
		return "phone"
	}
	return "other"
}

func looksLikePhone(v string) bool {
	digits := 0
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '.' || r == '-' || r == '+' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 6
}

var mediaTypeKeywords = []labelCode{
	{"image", "image"},
	{"photo", "image"},
	{"picture", "image"},
	{"logo", "logo"},
	{"video", "video"},
	{"pdf", "document"},
	{"document", "document"},
	{"brochure", "document"},
}

var mediaExtensions = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".webp": "image",
	".mp4":  "video",
	".mov":  "video",
	".avi":  "video",
	".mkv":  "video",
	".pdf":  "document",
}

// MediaTypeFor infers a media type code from a declared type or mime type,
// then from the URL. Defaults to image.
func MediaTypeFor(declared, url string) string {
	d := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(d, "/"); i > 0 {
		switch d[:i] {
		case "image":
			return "image"
		case "video":
			return "video"
		case "application", "text":
			return "document"
		}
	}
	for _, lc := range mediaTypeKeywords {
		if d != "" && strings.Contains(d, lc.label) {
			return lc.code
		}
	}
	u := strings.ToLower(url)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	for ext, code := range mediaExtensions {
		if strings.HasSuffix(u, ext) {
			return code
		}
	}
	for _, lc := range mediaTypeKeywords {
		if strings.Contains(u, lc.label) {
			return lc.code
		}
	}
	return "image"
}

// languageCodes maps normalized language labels to ISO 639-1 codes.
var languageCodes = map[string]string{
	"francais":    "fr",
	"french":      "fr",
	"fr":          "fr",
	"anglais":     "en",
	"english":     "en",
	"en":          "en",
	"allemand":    "de",
	"german":      "de",
	"de":          "de",
	"espagnol":    "es",
	"spanish":     "es",
	"es":          "es",
	"italien":     "it",
	"italian":     "it",
	"it":          "it",
	"creole":      "rcf",
	"chinois":     "zh",
	"chinese":     "zh",
	"mandarin":    "zh",
	"portugais":   "pt",
	"portuguese":  "pt",
	"neerlandais": "nl",
	"dutch":       "nl",
	"japonais":    "ja",
	"japanese":    "ja",
	"russe":       "ru",
	"russian":     "ru",
	"arabe":       "ar",
	"arabic":      "ar",
	"tamoul":      "ta",
	"tamil":       "ta",
	"malgache":    "mg",
	"malagasy":    "mg",
}

// LanguageCodeFor returns the ISO code for a language label, or the
// normalized label when unknown.
func LanguageCodeFor(label string) string {
	code := normalize.NormalizeCode(label)
	if iso, ok := languageCodes[code]; ok {
		return iso
	}
	return code
}

// proficiencyLevels maps labels found in parentheses ("Anglais (courant)").
var proficiencyLevels = map[string]string{
	"courant":       "fluent",
	"fluent":        "fluent",
	"bilingue":      "native",
	"natif":         "native",
	"native":        "native",
	"maternelle":    "native",
	"notions":       "basic",
	"basic":         "basic",
	"debutant":      "basic",
	"intermediaire": "intermediate",
	"intermediate":  "intermediate",
}

// days maps French and English day names to canonical day codes.
var days = map[string]string{
	"lundi":     "monday",
	"mardi":     "tuesday",
	"mercredi":  "wednesday",
	"jeudi":     "thursday",
	"vendredi":  "friday",
	"samedi":    "saturday",
	"dimanche":  "sunday",
	"monday":    "monday",
	"tuesday":   "tuesday",
	"wednesday": "wednesday",
	"thursday":  "thursday",
	"friday":    "friday",
	"saturday":  "saturday",
	"sunday":    "sunday",
}

// ParseDays converts a localized day list ("Lundi, Mardi") into canonical
// day codes in input order. Unknown tokens are dropped.
func ParseDays(v any) []string {
	var out []string
	seen := make(map[string]bool)
	for _, token := range normalize.SplitList(v) {
		code, ok := days[normalize.NormalizeCode(token)]
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// providerAliases maps normalized source keys to ProviderRecord attributes.
var providerAliases = map[string]string{
	"presta_id":           "provider_id",
	"prestataire_id":      "provider_id",
	"provider_id":         "provider_id",
	"nom":                 "last_name",
	"last_name":           "last_name",
	"prenom":              "first_name",
	"first_name":          "first_name",
	"genre":               "gender",
	"gender":              "gender",
	"email":               "email",
	"e_mail":              "email",
	"numero_de_telephone": "phone",
	"telephone":           "phone",
	"phone":               "phone",
	"fonction":            "function",
	"function":            "function",
	"newsletter":          "newsletter",
	"numero_rue":          "address1",
	"address1":            "address1",
	"code_postal":         "postcode",
	"postcode":            "postcode",
	"ville":               "city",
	"city":                "city",
	"lieux_dits":          "lieu_dit",
	"lieu_dit":            "lieu_dit",
	"dob":                 "date_of_birth",
	"date_of_birth":       "date_of_birth",
	"date_de_naissance":   "date_of_birth",
	"revenus":             "revenue",
	"revenue":             "revenue",
}
