package normalize

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bertel/migration-tool/internal/model"
)

// ErrEmptyPayload is returned when an envelope carries nothing at all.
var ErrEmptyPayload = eris.New("normalize: empty payload")

// Normalize converts a raw envelope into a canonical record. Malformed input
// degrades to a record holding only raw_payload; only an empty envelope is
// an error.
func Normalize(env Envelope) (*model.CanonicalRecord, error) {
	var (
		rec *model.CanonicalRecord
		err error
	)
	switch env.Kind {
	case KindText:
		rec, err = fromText(env.Text)
	case KindList:
		rec, err = fromList(env.List)
	case KindMapping:
		rec, err = fromMapping(env.Mapping)
	default:
		return nil, eris.Errorf("normalize: unknown envelope kind %d", env.Kind)
	}
	if err != nil {
		return nil, err
	}
	if rec.Name == "" {
		rec.Name = strings.TrimSpace(env.FallbackName)
	}
	return rec, nil
}

func fromText(text string) (*model.CanonicalRecord, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyPayload
	}

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		switch t := v.(type) {
		case map[string]any:
			if len(t) > 0 {
				return fromMapping(t)
			}
		case []any:
			if len(t) > 0 {
				return fromList(t)
			}
		}
	}

	if strings.HasPrefix(trimmed, "<") {
		if m, err := parseXML(trimmed); err == nil && len(m) > 0 {
			return fromMapping(m)
		}
	}

	if m, ok := parseKeyValue(trimmed); ok {
		return fromMapping(m)
	}

	rec := model.NewCanonicalRecord()
	rec.Set(KeyRawPayload, text)
	return rec, nil
}

func fromList(items []any) (*model.CanonicalRecord, error) {
	if len(items) == 0 {
		return nil, ErrEmptyPayload
	}

	var rec *model.CanonicalRecord
	switch primary := items[0].(type) {
	case map[string]any:
		r, err := fromMapping(primary)
		if err != nil && !eris.Is(err, ErrEmptyPayload) {
			return nil, err
		}
		rec = r
	case string:
		if r, err := fromText(primary); err == nil {
			rec = r
		}
	}
	if rec == nil {
		rec = model.NewCanonicalRecord()
		if !model.IsEmpty(items[0]) {
			rec.Set(KeyRawPayload, Stringify(items[0]))
		}
	}

	if len(items) > 1 {
		rest := make([]any, 0, len(items)-1)
		for _, it := range items[1:] {
			if !model.IsEmpty(it) {
				rest = append(rest, it)
			}
		}
		rec.Set(KeyAdditionalBatches, rest)
	}
	return rec, nil
}

// fromMapping runs the work-queue classification and field derivation over
// one record.
func fromMapping(m map[string]any) (*model.CanonicalRecord, error) {
	if len(m) == 0 {
		return nil, ErrEmptyPayload
	}

	rec := model.NewCanonicalRecord()
	b := newBuilder()

	// Envelope-level identity keys win over anything derived from the body.
	envelope := make(map[string]any)
	for _, k := range model.SortedKeys(m) {
		v := m[k]
		nk := NormalizeKey(k)
		switch {
		case nk == "data":
			switch t := v.(type) {
			case map[string]any:
				b.enqueue(t)
			case []any:
				b.enqueueAll(t)
			default:
				b.main[k] = v
			}
		case isEnvelopeKey(nk):
			envelope[nk] = v
		default:
			b.main[k] = v
		}
	}

	b.drain()

	rec.Name = firstString(envelope, "name", "establishment_name")
	rec.Category = firstString(envelope, "category", "establishment_category")
	rec.Subcategory = firstString(envelope, "subcategory", "establishment_subcategory")
	rec.SourceOrganizationID = firstString(envelope, orgKeys...)
	for _, k := range []string{"legacy_ids", "legacy_id"} {
		for _, id := range SplitList(envelope[k]) {
			rec.AddLegacyID(id)
		}
	}

	b.derive(rec)
	return rec, nil
}

func isEnvelopeKey(nk string) bool {
	switch nk {
	case "name", "establishment_name", "category", "establishment_category",
		"subcategory", "establishment_subcategory", "legacy_ids", "legacy_id":
		return true
	}
	for _, k := range orgKeys {
		if nk == k {
			return true
		}
	}
	return false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := Stringify(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// builder accumulates the main record and the typed buckets while the work
// queue drains.
type builder struct {
	queue []map[string]any
	main  map[string]any

	providers []any
	schedule  []any
	media     []any
	tariffs   []any
	socials   []any
}

func newBuilder() *builder {
	return &builder{main: make(map[string]any)}
}

func (b *builder) enqueue(block map[string]any) {
	if len(block) > 0 {
		b.queue = append(b.queue, block)
	}
}

func (b *builder) enqueueAll(items []any) {
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			b.enqueue(m)
		}
	}
}

func (b *builder) drain() {
	for len(b.queue) > 0 {
		block := b.queue[0]
		b.queue = b.queue[1:]
		b.file(block)
	}
}

// file routes one block by its structural fingerprint.
func (b *builder) file(block map[string]any) {
	keys := normalizedIndex(block)
	switch {
	case hasAny(keys, providerMarkers):
		b.providers = append(b.providers, block)
	case hasAny(keys, scheduleMarkers):
		b.schedule = append(b.schedule, block)
	case hasAny(keys, mediaMarkers):
		b.media = append(b.media, mediaBlock(block, keys))
	case hasAny(keys, tariffMarkers):
		b.tariffs = append(b.tariffs, block)
	case hasAny(keys, socialMarkers):
		b.socials = append(b.socials, map[string]any{
			"network": Stringify(pick(block, keys, socialNetworkKeys)),
			"url":     Stringify(pick(block, keys, socialURLKeys)),
		})
	default:
		if raw, ok := keys["data"]; ok {
			if nested, ok := block[raw].([]any); ok {
				rest := make(map[string]any, len(block)-1)
				for k, v := range block {
					if k != raw {
						rest[k] = v
					}
				}
				b.enqueue(rest)
				b.enqueueAll(nested)
				return
			}
		}
		for _, k := range model.SortedKeys(block) {
			b.main[k] = block[k]
		}
	}
}

func mediaBlock(block map[string]any, keys map[string]string) map[string]any {
	used := make(map[string]bool)
	take := func(aliases []string) any {
		for _, a := range aliases {
			if raw, ok := keys[a]; ok && !model.IsEmpty(block[raw]) {
				used[raw] = true
				return block[raw]
			}
		}
		return nil
	}

	out := map[string]any{
		"url":         Stringify(take(mediaURLKeys)),
		"title":       Stringify(take(mediaTitleKeys)),
		"description": Stringify(take(mediaDescriptionKeys)),
		"media_type":  Stringify(take(mediaTypeKeys)),
	}
	if credit := Stringify(take(mediaCreditKeys)); credit != "" {
		out["credit"] = credit
	}
	if v := take(mediaMainKeys); v != nil {
		main, _ := CoerceBool(v)
		out["is_main"] = main
	} else {
		out["is_main"] = false
	}

	meta := make(map[string]any)
	for k, v := range block {
		if !used[k] && !model.IsEmpty(v) {
			meta[k] = v
		}
	}
	out["metadata"] = meta
	return out
}

// normalizedIndex maps normalized key -> original key. On collisions the
// lexically first original key wins.
func normalizedIndex(m map[string]any) map[string]string {
	idx := make(map[string]string, len(m))
	for _, k := range model.SortedKeys(m) {
		nk := NormalizeKey(k)
		if _, ok := idx[nk]; !ok {
			idx[nk] = k
		}
	}
	return idx
}

func hasAny(idx map[string]string, markers []string) bool {
	for _, m := range markers {
		if _, ok := idx[m]; ok {
			return true
		}
	}
	return false
}

func pick(block map[string]any, idx map[string]string, aliases []string) any {
	for _, a := range aliases {
		if raw, ok := idx[a]; ok && !model.IsEmpty(block[raw]) {
			return block[raw]
		}
	}
	return nil
}
