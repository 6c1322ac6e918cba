package normalize

import (
	"strings"

	"github.com/bertel/migration-tool/internal/model"
)

// deriver reads canonical fields out of the main record. Every alias key it
// looks at is consumed; whatever is left passes through to the auxiliary bag.
type deriver struct {
	main     map[string]any
	idx      map[string][]string
	consumed map[string]bool
}

func newDeriver(main map[string]any) *deriver {
	idx := make(map[string][]string, len(main))
	for _, k := range model.SortedKeys(main) {
		nk := NormalizeKey(k)
		idx[nk] = append(idx[nk], k)
	}
	return &deriver{main: main, idx: idx, consumed: make(map[string]bool)}
}

// take consumes every alias present and returns the first non-empty value.
func (d *deriver) take(aliases ...string) any {
	var found any
	for _, a := range aliases {
		for _, raw := range d.idx[a] {
			d.consumed[raw] = true
			if found == nil && !model.IsEmpty(d.main[raw]) {
				found = d.main[raw]
			}
		}
	}
	return found
}

// takeAll consumes every alias and returns all non-empty values in alias order.
func (d *deriver) takeAll(aliases ...string) []any {
	var out []any
	for _, a := range aliases {
		for _, raw := range d.idx[a] {
			d.consumed[raw] = true
			if !model.IsEmpty(d.main[raw]) {
				out = append(out, d.main[raw])
			}
		}
	}
	return out
}

func (d *deriver) str(aliases ...string) string {
	return Stringify(d.take(aliases...))
}

func (b *builder) derive(rec *model.CanonicalRecord) {
	d := newDeriver(b.main)

	if name := d.str(nameKeys...); rec.Name == "" {
		rec.Name = name
	}
	category := d.str(categoryKeys...)
	group := d.str(categoryGroup...)
	if rec.Category == "" {
		rec.Category = category
	}
	if rec.Category == "" {
		rec.Category = group
	}
	if sub := d.str(subcategoryKeys...); rec.Subcategory == "" {
		rec.Subcategory = sub
	}
	if org := d.str(orgKeys...); rec.SourceOrganizationID == "" {
		rec.SourceOrganizationID = org
	}
	for _, v := range d.takeAll(legacyIDKeys...) {
		for _, id := range SplitList(v) {
			rec.AddLegacyID(id)
		}
	}

	// Location
	addr1 := d.str(address1Keys...)
	number := d.str(houseNumberKeys...)
	street := d.str(streetKeys...)
	if addr1 == "" {
		addr1 = strings.TrimSpace(strings.Join(nonEmpty(number, street), " "))
	}
	rec.Set(KeyAddressLine1, addr1)
	rec.Set(KeyAddressLine2, d.str(address2Keys...))
	rec.Set(KeyPostalCode, d.str(postalCodeKeys...))
	rec.Set(KeyCity, d.str(cityKeys...))
	rec.Set(KeyCountry, d.str(countryKeys...))
	rec.Set(KeyCodeINSEE, d.str(inseeKeys...))

	gps := d.take(gpsKeys...)
	latRaw := d.take(latitudeKeys...)
	lonRaw := d.take(longitudeKeys...)
	if lat, lon, ok := CoordinatePair(gps); ok {
		rec.Set(KeyLatitude, lat)
		rec.Set(KeyLongitude, lon)
	} else {
		lat, ok1 := CoerceFloat(latRaw)
		lon, ok2 := CoerceFloat(lonRaw)
		if ok1 && ok2 && validLatLon(lat, lon) {
			rec.Set(KeyLatitude, lat)
			rec.Set(KeyLongitude, lon)
		}
	}

	// Descriptive
	rec.Set(KeyDescription, d.str(descriptionKeys...))
	rec.Set(KeySummary, d.str(summaryKeys...))
	rec.Set(KeyStatus, d.str(statusKeys...))
	rec.Set(KeySourceStatus, d.str(sourceStatusKeys...))

	// Multi-value
	setList(rec, KeyAmenities, d.take(amenityKeys...))
	setList(rec, KeyNearbyServices, d.take(nearbyKeys...))
	setList(rec, KeyPaymentMethods, d.take(paymentKeys...))
	setList(rec, KeyLanguages, d.take(languageKeys...))
	setList(rec, KeyEnvironmentTags, d.take(environmentKeys...))

	// Contact
	var phones []string
	for _, v := range d.takeAll(phoneKeys...) {
		phones = append(phones, SplitList(v)...)
	}
	if phones = dedupe(phones); len(phones) > 0 {
		rec.Set(KeyPhone, phones)
	}
	rec.Set(KeyEmail, d.str(emailKeys...))
	rec.Set(KeyWebsite, d.str(websiteKeys...))

	// Flags keep an explicit false.
	if v, ok := CoerceBool(d.take(accessibleKeys...)); ok {
		rec.Auxiliary[KeyAccessible] = v
	}
	if v, ok := CoerceBool(d.take(petsKeys...)); ok {
		rec.Auxiliary[KeyPetsAllowed] = v
	}

	// Pass-through of whatever no derivation claimed.
	for _, k := range model.SortedKeys(b.main) {
		if d.consumed[k] {
			continue
		}
		if _, exists := rec.Auxiliary[k]; exists {
			continue
		}
		rec.Set(k, b.main[k])
	}

	setBucket(rec, KeyProviders, b.providers)
	setBucket(rec, KeySchedule, b.schedule)
	setBucket(rec, KeyMedia, b.media)
	setBucket(rec, KeyTariffs, b.tariffs)
	setBucket(rec, KeySocials, b.socials)
}

func setList(rec *model.CanonicalRecord, key string, v any) {
	if items := SplitList(v); len(items) > 0 {
		rec.Set(key, items)
	}
}

func setBucket(rec *model.CanonicalRecord, key string, items []any) {
	if len(items) > 0 {
		rec.Set(key, items)
	}
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
