package classify

import (
	"regexp"
	"strings"

	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/normalize"
)

// ownerKeys carry the owning object id inside a fragment.
var ownerKeys = []string{"object_id", "establishment_id"}

func isOwnerKey(k string) bool {
	nk := normalize.NormalizeKey(k)
	return nk == "object_id" || nk == "establishment_id"
}

// lookup returns the first non-empty value among aliases, matching keys by
// their normalized form.
func lookup(payload map[string]any, aliases ...string) any {
	for _, a := range aliases {
		if v, ok := payload[a]; ok && !model.IsEmpty(v) {
			return v
		}
	}
	for _, k := range model.SortedKeys(payload) {
		nk := normalize.NormalizeKey(k)
		for _, a := range aliases {
			if nk == a && !model.IsEmpty(payload[k]) {
				return payload[k]
			}
		}
	}
	return nil
}

func str(payload map[string]any, aliases ...string) string {
	return normalize.Stringify(lookup(payload, aliases...))
}

func owner(payload map[string]any) string {
	return str(payload, ownerKeys...)
}

// ExtractIdentity reads the object row fields. The name may be empty; the
// identity agent rejects such records.
func ExtractIdentity(payload map[string]any) model.IdentityRecord {
	category := str(payload, "category", "establishment_category")
	subcategory := str(payload, "subcategory", "establishment_subcategory", "sub_category")

	rec := model.IdentityRecord{
		ObjectID:        owner(payload),
		ObjectType:      ObjectTypeFor(category),
		Name:            str(payload, "name", "establishment_name"),
		Description:     str(payload, "description", "summary"),
		Summary:         str(payload, "summary"),
		CategoryCode:    normalize.NormalizeCode(category),
		SubcategoryCode: normalize.NormalizeCode(subcategory),
		Status:          str(payload, "status"),
	}
	for _, k := range []string{"legacy_ids", "legacy_id"} {
		rec.LegacyIDs = appendUnique(rec.LegacyIDs, normalize.SplitList(payload[k])...)
	}
	return rec
}

// ExtractLocations reads the single address/coordinates record, if any.
func ExtractLocations(payload map[string]any) []model.LocationRecord {
	rec := model.LocationRecord{
		ObjectID:  owner(payload),
		Address1:  str(payload, "address1", "address_line1"),
		Address2:  str(payload, "address2", "address_line2"),
		Postcode:  str(payload, "postcode", "postal_code", "zip"),
		City:      str(payload, "city"),
		Country:   str(payload, "country"),
		CodeINSEE: str(payload, "code_insee"),
	}

	lat, okLat := normalize.CoerceFloat(lookup(payload, "latitude", "lat"))
	lon, okLon := normalize.CoerceFloat(lookup(payload, "longitude", "lon", "lng"))
	if !okLat || !okLon {
		lat, lon, okLat = normalize.CoordinatePair(lookup(payload, "coordinates", "gps", "coordonnees_gps"))
		okLon = okLat
	}
	if okLat && okLon {
		rec.Latitude = &lat
		rec.Longitude = &lon
	}
	if accessible, ok := normalize.CoerceBool(lookup(payload, "accessible", "accessibility")); ok {
		rec.Accessible = &accessible
	}

	if !rec.HasData() {
		return nil
	}
	return []model.LocationRecord{rec}
}

// ExtractContacts turns every contact-like value into channels. Social
// network channels are returned with their network as kind.
func ExtractContacts(payload map[string]any) []model.ContactChannelRecord {
	objectID := owner(payload)
	var out []model.ContactChannelRecord
	for _, k := range model.SortedKeys(payload) {
		if isOwnerKey(k) {
			continue
		}
		out = channelsFrom(out, k, payload[k])
	}

	seen := make(map[string]bool)
	positions := make(map[string]int)
	deduped := out[:0]
	for _, ch := range out {
		key := ch.Kind + "\x00" + ch.Value
		if seen[key] {
			continue
		}
		seen[key] = true
		ch.ObjectID = objectID
		ch.Position = positions[ch.Kind]
		ch.IsPrimary = ch.Position == 0
		positions[ch.Kind]++
		deduped = append(deduped, ch)
	}
	return deduped
}

func channelsFrom(out []model.ContactChannelRecord, key string, value any) []model.ContactChannelRecord {
	switch t := value.(type) {
	case nil:
		return out
	case []any:
		for _, item := range t {
			out = channelsFrom(out, key, item)
		}
	case []string:
		for _, item := range t {
			out = channelsFrom(out, key, item)
		}
	case map[string]any:
		if url := str(t, "url", "lien", "link"); url != "" {
			network := str(t, "network", "type", "type_r_s", "reseau_social")
			if network == "" {
				network = key
			}
			return append(out, model.ContactChannelRecord{Kind: ContactKindFor(network, url), Value: url})
		}
		for _, k := range model.SortedKeys(t) {
			out = channelsFrom(out, k, t[k])
		}
	default:
		v := normalize.Stringify(t)
		if v == "" {
			return out
		}
		out = append(out, model.ContactChannelRecord{Kind: ContactKindFor(key, v), Value: v})
	}
	return out
}

// ExtractAmenities splits amenity lists into links. Nearby services are
// tagged with the "nearby" family.
func ExtractAmenities(payload map[string]any) []model.AmenityLinkRecord {
	objectID := owner(payload)
	var out []model.AmenityLinkRecord
	seen := make(map[string]bool)
	for _, k := range model.SortedKeys(payload) {
		if isOwnerKey(k) {
			continue
		}
		family := ""
		if nk := normalize.NormalizeKey(k); strings.Contains(nk, "nearby") || strings.Contains(nk, "proximite") {
			family = "nearby"
		}
		for _, item := range codedItems(payload[k], "amenity_code", "amenity_name") {
			if seen[item.code] {
				continue
			}
			seen[item.code] = true
			out = append(out, model.AmenityLinkRecord{
				ObjectID:    objectID,
				AmenityCode: item.code,
				AmenityName: item.name,
				FamilyCode:  firstNonEmpty(item.family, family),
			})
		}
	}
	return out
}

// ExtractPaymentMethods splits payment method lists.
func ExtractPaymentMethods(payload map[string]any) []model.PaymentMethodRecord {
	objectID := owner(payload)
	var out []model.PaymentMethodRecord
	for _, item := range allCodedItems(payload, "payment_code", "payment_name") {
		out = append(out, model.PaymentMethodRecord{ObjectID: objectID, Code: item.code, Name: item.name})
	}
	return out
}

// ExtractEnvironmentTags splits surroundings tag lists.
func ExtractEnvironmentTags(payload map[string]any) []model.EnvironmentTagRecord {
	objectID := owner(payload)
	var out []model.EnvironmentTagRecord
	for _, item := range allCodedItems(payload, "tag_code", "tag_name") {
		out = append(out, model.EnvironmentTagRecord{ObjectID: objectID, Code: item.code, Name: item.name})
	}
	return out
}

var levelSuffix = regexp.MustCompile(`^(.*?)\s*[(\[]\s*([^)\]]+)\s*[)\]]\s*$`)

// ExtractLanguages reads spoken languages. A parenthesised suffix gives the
// proficiency: "Anglais (courant)".
func ExtractLanguages(payload map[string]any) []model.LanguageLinkRecord {
	objectID := owner(payload)
	var out []model.LanguageLinkRecord
	seen := make(map[string]bool)
	add := func(rec model.LanguageLinkRecord) {
		key := rec.LanguageCode + "\x00" + rec.LanguageName
		if seen[key] {
			return
		}
		seen[key] = true
		rec.ObjectID = objectID
		out = append(out, rec)
	}

	for _, k := range model.SortedKeys(payload) {
		if isOwnerKey(k) {
			continue
		}
		for _, raw := range listItems(payload[k]) {
			switch t := raw.(type) {
			case map[string]any:
				name := str(t, "language_name", "name", "label", "langue")
				code := str(t, "language_code", "code", "iso")
				if code == "" && name != "" {
					code = LanguageCodeFor(name)
				}
				add(model.LanguageLinkRecord{
					LanguageCode: strings.ToLower(code),
					LanguageName: name,
					Proficiency:  levelCode(str(t, "proficiency", "level", "niveau")),
				})
			default:
				for _, label := range normalize.SplitList(t) {
					name, level := label, ""
					if m := levelSuffix.FindStringSubmatch(label); m != nil {
						name, level = strings.TrimSpace(m[1]), m[2]
					}
					add(model.LanguageLinkRecord{
						LanguageCode: LanguageCodeFor(name),
						LanguageName: name,
						Proficiency:  levelCode(level),
					})
				}
			}
		}
	}
	return out
}

func levelCode(label string) string {
	code := normalize.NormalizeCode(label)
	if code == "" {
		return ""
	}
	if known, ok := proficiencyLevels[code]; ok {
		return known
	}
	return code
}

// ExtractPetPolicy reads whether pets are accepted and any conditions. A nil
// result means the fragment carried no pet information.
func ExtractPetPolicy(payload map[string]any) *model.PetPolicyRecord {
	rec := &model.PetPolicyRecord{ObjectID: owner(payload)}
	for _, k := range model.SortedKeys(payload) {
		if isOwnerKey(k) {
			continue
		}
		switch t := payload[k].(type) {
		case map[string]any:
			if v, ok := normalize.CoerceBool(lookup(t, "accepted", "allowed", "pets_allowed")); ok && rec.Accepted == nil {
				rec.Accepted = &v
			}
			if c := str(t, "conditions", "condition", "notes"); c != "" && rec.Conditions == "" {
				rec.Conditions = c
			}
		default:
			nk := normalize.NormalizeKey(k)
			if strings.Contains(nk, "condition") {
				if rec.Conditions == "" {
					rec.Conditions = normalize.Stringify(t)
				}
				continue
			}
			if v, ok := normalize.CoerceBool(t); ok {
				if rec.Accepted == nil {
					rec.Accepted = &v
				}
			} else if s := normalize.Stringify(t); s != "" && rec.Conditions == "" {
				rec.Conditions = s
			}
		}
	}
	if rec.Accepted == nil && rec.Conditions == "" {
		return nil
	}
	return rec
}

// ExtractProviders reads provider blocks, mapping French source labels.
func ExtractProviders(payload map[string]any) []model.ProviderRecord {
	objectID := owner(payload)
	var blocks []map[string]any
	var loose map[string]any
	for _, k := range model.SortedKeys(payload) {
		if isOwnerKey(k) {
			continue
		}
		switch t := payload[k].(type) {
		case map[string]any:
			blocks = append(blocks, providerBlocks(t)...)
		case []any:
			for _, item := range t {
				if m, ok := item.(map[string]any); ok {
					blocks = append(blocks, providerBlocks(m)...)
				}
			}
		default:
			if _, ok := providerAliases[normalize.NormalizeKey(k)]; ok {
				if loose == nil {
					loose = make(map[string]any)
				}
				loose[k] = t
			}
		}
	}
	if loose != nil {
		blocks = append(blocks, loose)
	}

	out := make([]model.ProviderRecord, 0, len(blocks))
	for _, b := range blocks {
		rec := providerFrom(b)
		rec.ObjectID = objectID
		out = append(out, rec)
	}
	return out
}

// providerBlocks unwraps {"data": [...]} containers.
func providerBlocks(m map[string]any) []map[string]any {
	if nested, ok := m["data"].([]any); ok {
		var out []map[string]any
		for _, item := range nested {
			if child, ok := item.(map[string]any); ok {
				out = append(out, providerBlocks(child)...)
			}
		}
		return out
	}
	return []map[string]any{m}
}

func providerFrom(block map[string]any) model.ProviderRecord {
	attrs := make(map[string]any)
	var number, street string
	for _, k := range model.SortedKeys(block) {
		nk := normalize.NormalizeKey(k)
		switch nk {
		case "numero":
			number = normalize.Stringify(block[k])
			continue
		case "rue", "street":
			street = normalize.Stringify(block[k])
			continue
		}
		if attr, ok := providerAliases[nk]; ok {
			if _, set := attrs[attr]; !set && !model.IsEmpty(block[k]) {
				attrs[attr] = block[k]
			}
		}
	}

	get := func(attr string) string { return normalize.Stringify(attrs[attr]) }
	rec := model.ProviderRecord{
		ProviderID:  get("provider_id"),
		FirstName:   get("first_name"),
		LastName:    get("last_name"),
		Gender:      get("gender"),
		Email:       strings.ToLower(get("email")),
		Phone:       get("phone"),
		Function:    get("function"),
		Address1:    get("address1"),
		Postcode:    get("postcode"),
		City:        get("city"),
		LieuDit:     get("lieu_dit"),
		DateOfBirth: get("date_of_birth"),
		Revenue:     get("revenue"),
	}
	if rec.Address1 == "" && (number != "" || street != "") {
		rec.Address1 = strings.TrimSpace(number + " " + street)
	}
	if v, ok := normalize.CoerceBool(attrs["newsletter"]); ok {
		rec.Newsletter = &v
	}
	if rec.ProviderID != "" {
		rec.LegacyIDs = []string{rec.ProviderID}
	}
	return rec
}

// ExtractSchedules reads opening periods. Records whose day list yields no
// recognized day are returned with empty Days.
func ExtractSchedules(payload map[string]any) []model.ScheduleRecord {
	objectID := owner(payload)
	var blocks []map[string]any
	loose := make(map[string]any)
	for _, k := range model.SortedKeys(payload) {
		if isOwnerKey(k) {
			continue
		}
		switch t := payload[k].(type) {
		case map[string]any:
			blocks = append(blocks, t)
		case []any:
			for _, item := range t {
				if m, ok := item.(map[string]any); ok {
					blocks = append(blocks, m)
				}
			}
		default:
			loose[k] = t
		}
	}
	if lookup(loose, "jours", "days", "jour") != nil {
		blocks = append(blocks, loose)
	}

	out := make([]model.ScheduleRecord, 0, len(blocks))
	for _, b := range blocks {
		rec := model.ScheduleRecord{
			ObjectID: objectID,
			Days:     ParseDays(lookup(b, "jours", "days", "jour")),
			AMStart:  str(b, "am_start"),
			AMFinish: str(b, "am_finish"),
			PMStart:  str(b, "pm_start"),
			PMFinish: str(b, "pm_finish"),
			LegacyID: str(b, "horaires_id", "schedule_id", "id"),
		}
		for _, k := range model.SortedKeys(b) {
			nk := normalize.NormalizeKey(k)
			if strings.Contains(nk, "reservation") || strings.Contains(nk, "vervation") {
				if v, ok := normalize.CoerceBool(b[k]); ok {
					rec.ReservationRequired = &v
				}
			}
		}
		out = append(out, rec)
	}
	return out
}

// ExtractMedia reads media items from lists, single mappings, or bare URLs.
func ExtractMedia(payload map[string]any) []model.MediaRecord {
	objectID := owner(payload)
	var out []model.MediaRecord
	for _, k := range model.SortedKeys(payload) {
		if isOwnerKey(k) {
			continue
		}
		for _, item := range listItems(payload[k]) {
			var rec model.MediaRecord
			switch t := item.(type) {
			case map[string]any:
				rec = mediaFrom(t)
			default:
				url := normalize.Stringify(t)
				if url == "" {
					continue
				}
				rec = model.MediaRecord{URL: url, MediaType: MediaTypeFor(k, url)}
			}
			rec.ObjectID = objectID
			rec.Position = len(out)
			out = append(out, rec)
		}
	}
	return out
}

func mediaFrom(m map[string]any) model.MediaRecord {
	url := str(m, "url", "lien", "link", "href")
	rec := model.MediaRecord{
		URL:         url,
		MediaType:   MediaTypeFor(str(m, "media_type", "type", "mime_type"), url),
		Title:       str(m, "title", "titre"),
		Description: str(m, "description", "legende"),
		Credit:      str(m, "credit", "copyright"),
	}
	if v, ok := normalize.CoerceBool(lookup(m, "is_main", "principale", "main")); ok {
		rec.IsMain = v
	}
	if meta, ok := m["metadata"].(map[string]any); ok && len(meta) > 0 {
		rec.Metadata = meta
	}
	return rec
}

type codedItem struct {
	code   string
	name   string
	family string
}

// codedItems reads labels from a delimited string, a list of labels, or a
// list of {code, name} mappings.
func codedItems(v any, codeKey, nameKey string) []codedItem {
	var out []codedItem
	for _, raw := range listItems(v) {
		switch t := raw.(type) {
		case map[string]any:
			name := str(t, nameKey, "name", "label", "libelle", "nom")
			code := normalize.NormalizeCode(str(t, codeKey, "code"))
			if code == "" {
				code = normalize.NormalizeCode(name)
			}
			if code == "" {
				continue
			}
			out = append(out, codedItem{code: code, name: name, family: str(t, "family_code", "family")})
		default:
			for _, label := range normalize.SplitList(t) {
				if code := normalize.NormalizeCode(label); code != "" {
					out = append(out, codedItem{code: code, name: label})
				}
			}
		}
	}
	return out
}

func allCodedItems(payload map[string]any, codeKey, nameKey string) []codedItem {
	var out []codedItem
	seen := make(map[string]bool)
	for _, k := range model.SortedKeys(payload) {
		if isOwnerKey(k) {
			continue
		}
		for _, item := range codedItems(payload[k], codeKey, nameKey) {
			if !seen[item.code] {
				seen[item.code] = true
				out = append(out, item)
			}
		}
	}
	return out
}

func listItems(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{t}
	}
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, d := range dst {
			if d == it {
				dup = true
				break
			}
		}
		if !dup && it != "" {
			dst = append(dst, it)
		}
	}
	return dst
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
