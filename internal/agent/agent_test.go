package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/store"
)

const testObjectID = "RESRUN0000000001"

func newDeps(backend store.Backend) Deps {
	return Deps{Backend: backend, Service: classify.NewRuleBased()}
}

func newRunContext(backend store.Backend, objectID string) *Context {
	c := NewContext("run-1", map[string]any{}, "", NewResolver(backend))
	c.SetObjectID(objectID)
	return c
}

func rowsWith(key string, want any) any {
	return mock.MatchedBy(func(rows []map[string]any) bool {
		return len(rows) == 1 && rows[0][key] == want
	})
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry(newDeps(new(mockBackend)))
	assert.Equal(t, []string{
		model.AgentIdentity, model.AgentLocation, model.AgentContact, model.AgentAmenities,
		model.AgentLanguages, model.AgentPayments, model.AgentEnvironment, model.AgentPetPolicy,
		model.AgentMedia, model.AgentProviders, model.AgentSchedule,
	}, r.Names())

	descriptors := r.Descriptors()
	require.Len(t, descriptors, 11)
	for _, d := range descriptors {
		assert.NotEmpty(t, d.Description, d.Name)
		assert.True(t, d.Accepts("object_id"), d.Name)
	}

	a, ok := r.Get(model.AgentSchedule)
	require.True(t, ok)
	assert.Equal(t, model.AgentSchedule, a.Descriptor().Name)
	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestContactMissingObjectIDWritesNothing(t *testing.T) {
	backend := new(mockBackend)
	c := newRunContext(backend, "")

	out, err := NewContact(newDeps(backend)).Handle(context.Background(), map[string]any{"phone": "0262275287"}, c)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeSkipped, out.Status)
	assert.Equal(t, []string{model.SkipMissingObjectID}, out.SkipReasons())
	assert.Empty(t, out.Records)
	backend.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)

	shared, ok := c.Shared(model.AgentContact)
	require.True(t, ok)
	assert.Len(t, shared["skipped"], 1)
}

func TestContactPersistsChannelsAndExcludesSocials(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Lookup", mock.Anything, "ref_code_contact_kind", "phone").Return("ck-phone", nil).Once()
	backend.On("Lookup", mock.Anything, "ref_code_contact_kind", "email").Return("", nil).Once()
	backend.On("EnsureCode", mock.Anything, "contact_kind", "email", store.CodeOptions{Name: "Email"}).Return("ck-email", nil).Once()
	backend.On("Upsert", mock.Anything, "contact_channel", rowsWith("kind_id", "ck-phone"), "object_id,kind_id,value").
		Return(okResult("contact_channel", "cc-1"), nil).Once()
	backend.On("Upsert", mock.Anything, "contact_channel", rowsWith("kind_id", "ck-email"), "object_id,kind_id,value").
		Return(okResult("contact_channel", "cc-2"), nil).Once()

	c := newRunContext(backend, testObjectID)
	out, err := NewContact(newDeps(backend)).Handle(context.Background(), map[string]any{
		"phone":   "0262275287",
		"email":   "contact@relais.re",
		"socials": []any{map[string]any{"network": "facebook", "url": "https://facebook.com/relais"}},
	}, c)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeOK, out.Status)
	assert.Len(t, out.Records, 2)
	assert.Equal(t, []string{model.SkipSocialChannelExcluded}, out.SkipReasons())
	backend.AssertExpectations(t)
}

func TestProvidersReuseAcrossFragments(t *testing.T) {
	backend := new(mockBackend)
	backend.On("FindProvider", mock.Anything, store.ProviderQuery{
		Email:     "marie@relais.re",
		LegacyIDs: []string{"P-1"},
	}).Return("", nil).Once()
	backend.On("Upsert", mock.Anything, "provider", rowsWith("id", "P-1"), "id").
		Return(okResult("provider", "P-1"), nil).Once()
	backend.On("Upsert", mock.Anything, "object_provider", rowsWith("provider_id", "P-1"), "object_id,provider_id").
		Return(okResult("object_provider", ""), nil).Twice()

	c := newRunContext(backend, testObjectID)
	agent := NewProviders(newDeps(backend))

	first, err := agent.Handle(context.Background(), map[string]any{
		"providers": []any{map[string]any{"Presta ID": "P-1", "Nom": "Payet", "Prénom": "Marie", "Email": "Marie@relais.re"}},
	}, c)
	require.NoError(t, err)
	require.Len(t, first.Records, 1)

	second, err := agent.Handle(context.Background(), map[string]any{
		"providers": []any{map[string]any{"Presta ID": "P-9", "Nom": "Payet", "Prénom": "Marie", "Email": "marie@relais.re"}},
	}, c)
	require.NoError(t, err)
	require.Len(t, second.Records, 1)

	assert.Equal(t, "P-1", second.Records[0].(model.ProviderRecord).ProviderID)
	backend.AssertNumberOfCalls(t, "FindProvider", 1)
	backend.AssertExpectations(t)

	id, ok := c.LookupProvider(ProviderKeyLegacy + "P-9")
	assert.True(t, ok)
	assert.Equal(t, "P-1", id)
}

func TestProvidersRegistryHitRegistersNewKeys(t *testing.T) {
	backend := new(mockBackend)
	backend.On("FindProvider", mock.Anything, mock.Anything).Return("", nil).Once()
	backend.On("Upsert", mock.Anything, "provider", rowsWith("id", "P-1"), "id").
		Return(okResult("provider", "P-1"), nil).Once()
	backend.On("Upsert", mock.Anything, "object_provider", rowsWith("provider_id", "P-1"), "object_id,provider_id").
		Return(okResult("object_provider", ""), nil).Times(3)

	c := newRunContext(backend, testObjectID)
	agent := NewProviders(newDeps(backend))
	fragments := []map[string]any{
		{"Presta ID": "P-1", "Nom": "Payet", "Prénom": "Marie", "Email": "marie@relais.re"},
		{"Presta ID": "P-2", "Nom": "Payet", "Prénom": "Marie", "Email": "marie@relais.re"},
		{"Presta ID": "P-2", "Nom": "Payet", "Prénom": "Marie"},
	}

	var resolved []string
	for _, f := range fragments {
		out, err := agent.Handle(context.Background(), map[string]any{"providers": []any{f}}, c)
		require.NoError(t, err)
		require.Len(t, out.Records, 1)
		resolved = append(resolved, out.Records[0].(model.ProviderRecord).ProviderID)
	}

	assert.Equal(t, []string{"P-1", "P-1", "P-1"}, resolved)
	backend.AssertNumberOfCalls(t, "FindProvider", 1)
	backend.AssertExpectations(t)
}

func TestProvidersExistingBackendRow(t *testing.T) {
	backend := new(mockBackend)
	backend.On("FindProvider", mock.Anything, mock.Anything).Return("prov-existing", nil).Once()
	backend.On("Upsert", mock.Anything, "object_provider", rowsWith("provider_id", "prov-existing"), "object_id,provider_id").
		Return(okResult("object_provider", ""), nil).Once()

	c := newRunContext(backend, testObjectID)
	out, err := NewProviders(newDeps(backend)).Handle(context.Background(), map[string]any{
		"providers": map[string]any{"Nom": "Hoarau", "Prénom": "Jean", "Téléphone": "0692000000"},
	}, c)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	backend.AssertNotCalled(t, "Upsert", mock.Anything, "provider", mock.Anything, mock.Anything)

	id, ok := c.LookupProvider(ProviderKeyPhone + out.Records[0].(model.ProviderRecord).Phone)
	assert.True(t, ok)
	assert.Equal(t, "prov-existing", id)
}

func TestProvidersInvalidRecord(t *testing.T) {
	backend := new(mockBackend)
	c := newRunContext(backend, testObjectID)
	out, err := NewProviders(newDeps(backend)).Handle(context.Background(), map[string]any{
		"providers": []any{map[string]any{"Presta ID": "P-2", "Nom": "Payet"}},
	}, c)
	require.NoError(t, err)
	assert.Equal(t, []string{model.SkipInvalidRecord}, out.SkipReasons())
}

func TestScheduleParsesDaysAndDropsUnknown(t *testing.T) {
	backend := new(mockBackend)
	wantID := store.ScheduleID(testObjectID, []string{"monday", "tuesday", "wednesday"}, "09:00", "12:00", "", "", "H-1")
	backend.On("Upsert", mock.Anything, "object_schedule", rowsWith("id", wantID), "id").
		Return(okResult("object_schedule", wantID), nil).Once()

	c := newRunContext(backend, testObjectID)
	out, err := NewSchedule(newDeps(backend)).Handle(context.Background(), map[string]any{
		"schedule": []any{
			map[string]any{"Horaires ID": "H-1", "Jours": "Lundi, Mardi, Mercredi", "am_start": "09:00", "am_finish": "12:00"},
			map[string]any{"Horaires ID": "H-2", "Jours": "Férié"},
		},
	}, c)
	require.NoError(t, err)

	require.Len(t, out.Records, 1)
	assert.Equal(t, []string{"monday", "tuesday", "wednesday"}, out.Records[0].(model.ScheduleRecord).Days)
	assert.Equal(t, []string{model.SkipNoRecognizedDays}, out.SkipReasons())
	backend.AssertExpectations(t)
}

func TestPetPolicyNoDataVersusSkipped(t *testing.T) {
	backend := new(mockBackend)
	agent := NewPetPolicy(newDeps(backend))

	out, err := agent.Handle(context.Background(), map[string]any{}, newRunContext(backend, ""))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoData, out.Status)
	assert.Empty(t, out.Skipped)

	out, err = agent.Handle(context.Background(), map[string]any{"pets_allowed": false}, newRunContext(backend, ""))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipped, out.Status)
	assert.Equal(t, []string{model.SkipMissingObjectID}, out.SkipReasons())

	backend.On("Upsert", mock.Anything, "object_pet_policy", rowsWith("accepted", false), "object_id").
		Return(okResult("object_pet_policy", ""), nil).Once()
	out, err = agent.Handle(context.Background(), map[string]any{"pets_allowed": false}, newRunContext(backend, testObjectID))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeOK, out.Status)
	backend.AssertExpectations(t)
}

func TestMediaResolvesTypeAndSkipsMissingURL(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Lookup", mock.Anything, "ref_code_media_type", "image").Return("mt-image", nil).Once()
	backend.On("Upsert", mock.Anything, "media", rowsWith("media_type_id", "mt-image"), "object_id,url").
		Return(okResult("media", "m-1"), nil).Once()

	c := newRunContext(backend, testObjectID)
	out, err := NewMedia(newDeps(backend)).Handle(context.Background(), map[string]any{
		"media": []any{
			map[string]any{"url": "https://cdn.example.org/terrasse.jpg", "title": "Terrasse"},
			map[string]any{"title": "Sans lien"},
		},
	}, c)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "image", out.Records[0].(model.MediaRecord).MediaType)
	assert.Contains(t, out.SkipReasons(), model.SkipMissingURL)
	backend.AssertExpectations(t)
}

func TestLanguagesFallbackAndLevels(t *testing.T) {
	backend := new(mockBackend)
	backend.On("EnsureLanguage", mock.Anything, "rcf", mock.Anything).Return("", nil).Once()
	backend.On("Lookup", mock.Anything, "ref_code_language", "rcf").Return("", nil).Once()
	backend.On("EnsureCode", mock.Anything, "language", "rcf", mock.Anything).Return("lang-rcf", nil).Once()
	backend.On("EnsureLanguage", mock.Anything, "en", mock.Anything).Return("lang-en", nil).Once()
	backend.On("Lookup", mock.Anything, "ref_code_language_level", "fluent").Return("lvl-fluent", nil).Once()
	backend.On("Upsert", mock.Anything, "object_language", rowsWith("language_id", "lang-rcf"), "object_id,language_id").
		Return(okResult("object_language", ""), nil).Once()
	backend.On("Upsert", mock.Anything, "object_language", rowsWith("level_id", "lvl-fluent"), "object_id,language_id").
		Return(okResult("object_language", ""), nil).Once()

	c := newRunContext(backend, testObjectID)
	out, err := NewLanguages(newDeps(backend)).Handle(context.Background(), map[string]any{
		"languages": "Créole, Anglais (courant)",
	}, c)
	require.NoError(t, err)
	assert.Len(t, out.Records, 2)
	assert.Empty(t, out.Skipped)
	backend.AssertExpectations(t)
}

func TestLanguagesMissingCodeCheckedFirst(t *testing.T) {
	backend := new(mockBackend)
	service := new(stubService)
	service.languages = []model.LanguageLinkRecord{{LanguageName: "Inconnue"}}

	out, err := NewLanguages(Deps{Backend: backend, Service: service}).Handle(context.Background(), map[string]any{"languages": "x"}, newRunContext(backend, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{model.SkipMissingLanguageCode}, out.SkipReasons())
}

func TestAmenitiesUnresolvedWithDisabledBackend(t *testing.T) {
	backend := store.NewDisabled("no credentials")
	c := newRunContext(backend, testObjectID)
	out, err := NewAmenities(newDeps(backend)).Handle(context.Background(), map[string]any{"amenities": "Wifi, Parking"}, c)
	require.NoError(t, err)
	assert.Equal(t, []string{model.SkipUnresolvedAmenity, model.SkipUnresolvedAmenity}, out.SkipReasons())
}

func TestPaymentsAndEnvironmentLinks(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Lookup", mock.Anything, "ref_code_payment_method", mock.Anything).Return("pm", nil)
	backend.On("Lookup", mock.Anything, "ref_code_environment_tag", mock.Anything).Return("env", nil)
	backend.On("Upsert", mock.Anything, "object_payment_method", rowsWith("payment_method_id", "pm"), "object_id,payment_method_id").
		Return(okResult("object_payment_method", ""), nil)
	backend.On("Upsert", mock.Anything, "object_environment_tag", rowsWith("environment_tag_id", "env"), "object_id,environment_tag_id").
		Return(okResult("object_environment_tag", ""), nil)

	c := newRunContext(backend, testObjectID)
	out, err := NewPayments(newDeps(backend)).Handle(context.Background(), map[string]any{"payment_methods": []any{"CB", "Espèces"}}, c)
	require.NoError(t, err)
	assert.Len(t, out.Records, 2)

	out, err = NewEnvironment(newDeps(backend)).Handle(context.Background(), map[string]any{"environment_tags": "Mer"}, c)
	require.NoError(t, err)
	assert.Len(t, out.Records, 1)
}

func TestLocationWritesGeometry(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Upsert", mock.Anything, "object_location", mock.MatchedBy(func(rows []map[string]any) bool {
		geom, ok := rows[0]["geom"].([]byte)
		return ok && len(geom) > 0 && rows[0]["city"] == "Le Tampon" && rows[0]["accessible"] == true
	}), "object_id").Return(okResult("object_location", ""), nil).Once()

	c := newRunContext(backend, testObjectID)
	out, err := NewLocation(newDeps(backend)).Handle(context.Background(), map[string]any{
		"city":       "Le Tampon",
		"latitude":   -21.204197,
		"longitude":  55.577417,
		"accessible": true,
	}, c)
	require.NoError(t, err)
	assert.Len(t, out.Records, 1)
	backend.AssertExpectations(t)
}

func TestTransformErrorPropagates(t *testing.T) {
	backend := new(mockBackend)
	service := &stubService{err: assert.AnError}
	_, err := NewLocation(Deps{Backend: backend, Service: service}).Handle(context.Background(), map[string]any{"city": "X"}, newRunContext(backend, testObjectID))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

// stubService returns canned extractions.
type stubService struct {
	classify.RuleBased
	languages []model.LanguageLinkRecord
	err       error
}

func (s *stubService) TransformFragment(ctx context.Context, agent string, payload map[string]any, out any, snapshot map[string]any) error {
	if s.err != nil {
		return s.err
	}
	if t, ok := out.(*model.LanguageTransformation); ok && s.languages != nil {
		t.Languages = s.languages
		return nil
	}
	return s.RuleBased.TransformFragment(ctx, agent, payload, out, snapshot)
}

func TestResolverFailureIsWrappedWithAgentContext(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Lookup", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	c := newRunContext(backend, testObjectID)
	_, err := NewContact(newDeps(backend)).Handle(context.Background(), map[string]any{"phone": "0262275287"}, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact: resolve kind")
	assert.Contains(t, err.Error(), "connection refused")

	_, err = NewPayments(newDeps(backend)).Handle(context.Background(), map[string]any{"payment_methods": []any{"CB"}}, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payments: resolve method")
}
