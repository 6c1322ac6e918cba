package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bertel/migration-tool/internal/agent"
	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/normalize"
	"github.com/bertel/migration-tool/internal/store"
	"github.com/bertel/migration-tool/internal/telemetry"
)

func newTestCoordinator(svc classify.Service, agents ...agent.Agent) *Coordinator {
	return New(Options{
		Backend:  store.NewDisabled("test"),
		Service:  svc,
		Registry: agent.NewRegistryOf(agents...),
		Metrics:  telemetry.NewMetrics(),
	})
}

func fragmentFor(t *testing.T, res *Result, name string) model.RoutedFragment {
	t.Helper()
	for _, f := range res.Fragments {
		if f.Agent == name {
			return f
		}
	}
	t.Fatalf("no fragment for %s", name)
	return model.RoutedFragment{}
}

func TestHandlePartitionsEveryField(t *testing.T) {
	identity := newFake(model.AgentIdentity, "name", "category")
	contact := newFake(model.AgentContact, "phone", "email")
	location := newFake(model.AgentLocation, "city")

	svc := &stubService{routes: map[string]string{"phone": model.AgentContact}}
	co := newTestCoordinator(svc, identity, contact, location)

	res, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{
		"name":    "Hotel Le Lagon",
		"phone":   "0262 00 00 00",
		"email":   "info@lagon.re",
		"mystery": "42",
	}))
	require.NoError(t, err)
	co.Wait()

	assert.Equal(t, "Hotel Le Lagon", res.EntityName)

	// email is recognised statically, mystery is left over, name is meta.
	c := fragmentFor(t, res, model.AgentContact)
	assert.Contains(t, c.Payload, "phone")
	assert.Contains(t, c.Payload, "email")
	assert.Contains(t, res.Leftovers, "mystery")
	assert.NotContains(t, res.Leftovers, "name")
	assert.NotContains(t, res.Leftovers, "email")

	// location had nothing routed to it.
	assert.Empty(t, location.received())
	for _, f := range res.Fragments {
		assert.NotEqual(t, model.AgentLocation, f.Agent)
	}
}

func TestHandleDispatchesIdentityFirst(t *testing.T) {
	identity := newFake(model.AgentIdentity, "name")
	identity.handle = func(fragment map[string]any, c *agent.Context) (*model.AgentOutcome, error) {
		c.SetObjectID("RESHOT0000000042")
		out := model.NewOutcome(model.AgentIdentity, "object")
		out.ObjectID = "RESHOT0000000042"
		return out, nil
	}
	contact := newFake(model.AgentContact, "phone")
	media := newFake(model.AgentMedia, "photos")

	svc := &stubService{routes: map[string]string{
		"phone":  model.AgentContact,
		"photos": model.AgentMedia,
	}}
	co := newTestCoordinator(svc, identity, contact, media)

	res, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{
		"name":   "Gite des Hauts",
		"phone":  "0692 11 22 33",
		"photos": []any{"https://img.example/1.jpg"},
	}))
	require.NoError(t, err)

	require.Len(t, res.Fragments, 3)
	assert.Equal(t, []string{model.AgentIdentity, model.AgentContact, model.AgentMedia},
		[]string{res.Fragments[0].Agent, res.Fragments[1].Agent, res.Fragments[2].Agent})
	assert.Equal(t, "RESHOT0000000042", res.ObjectID)

	calls := identity.received()
	require.Len(t, calls, 1)
	assert.Equal(t, "Gite des Hauts", calls[0]["name"])

	for _, a := range []*fakeAgent{contact, media} {
		got := a.received()
		require.Len(t, got, 1, a.name)
		assert.Equal(t, "RESHOT0000000042", got[0]["object_id"], a.name)
	}
}

func TestHandleSkipsIdentityWithoutName(t *testing.T) {
	identity := newFake(model.AgentIdentity, "name")
	contact := newFake(model.AgentContact, "phone")
	co := newTestCoordinator(&stubService{routes: map[string]string{"phone": model.AgentContact}}, identity, contact)

	res, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{
		"phone": "0262 00 00 00",
	}))
	require.NoError(t, err)

	assert.Empty(t, identity.received())
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, model.AgentContact, res.Fragments[0].Agent)
	assert.NotContains(t, contact.received()[0], "object_id")
}

func TestHandleIsolatesAgentFailures(t *testing.T) {
	identity := newFake(model.AgentIdentity, "name")
	location := newFake(model.AgentLocation, "city")
	location.handle = func(map[string]any, *agent.Context) (*model.AgentOutcome, error) {
		return nil, errors.New("relation \"location\" does not exist")
	}
	media := newFake(model.AgentMedia, "photos")
	media.handle = func(map[string]any, *agent.Context) (*model.AgentOutcome, error) {
		panic("nil map")
	}
	contact := newFake(model.AgentContact, "phone")

	svc := &stubService{routes: map[string]string{
		"city":   model.AgentLocation,
		"photos": model.AgentMedia,
		"phone":  model.AgentContact,
	}}
	co := newTestCoordinator(svc, identity, location, contact, media)

	res, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{
		"name":   "Camping du Lagon",
		"city":   "Saint-Gilles",
		"phone":  "0262 00 00 00",
		"photos": []any{"https://img.example/1.jpg"},
	}))
	require.NoError(t, err)

	loc := fragmentFor(t, res, model.AgentLocation)
	assert.Equal(t, model.FragmentError, loc.Status)
	assert.Contains(t, loc.Message, "does not exist")

	med := fragmentFor(t, res, model.AgentMedia)
	assert.Equal(t, model.FragmentError, med.Status)
	assert.Contains(t, med.Message, "panicked")

	assert.Equal(t, model.FragmentProcessed, fragmentFor(t, res, model.AgentContact).Status)
	assert.ElementsMatch(t, []string{model.AgentLocation, model.AgentMedia}, res.Errors())

	count, messages := co.Guidance().ErrorSummary(model.AgentLocation)
	assert.Equal(t, 1, count)
	assert.Len(t, messages, 1)

	var types []string
	for _, e := range co.Events().Snapshot() {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "coordinator.agent_error.location")
	assert.Contains(t, types, "coordinator.agent_error.media")
	assert.Contains(t, types, "coordinator.agent.contact")
	assert.Contains(t, types, "coordinator.received")
	assert.Equal(t, float64(1), testutil.ToFloat64(co.metrics.Fragments.WithLabelValues(model.AgentLocation, model.FragmentError)))
}

func TestHandleAppliesPerDispatchTimeout(t *testing.T) {
	identity := newFake(model.AgentIdentity, "name")
	slow := &slowAgent{fakeAgent: newFake(model.AgentSchedule, "horaires")}
	co := New(Options{
		Backend:     store.NewDisabled("test"),
		Service:     &stubService{routes: map[string]string{"horaires": model.AgentSchedule}},
		Registry:    agent.NewRegistryOf(identity, slow),
		CallTimeout: 20 * time.Millisecond,
	})

	res, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{
		"name":     "Table d'hote",
		"horaires": "lundi",
	}))
	require.NoError(t, err)

	f := fragmentFor(t, res, model.AgentSchedule)
	assert.Equal(t, model.FragmentError, f.Status)
	assert.Contains(t, f.Message, context.DeadlineExceeded.Error())
}

type slowAgent struct {
	*fakeAgent
}

func (s *slowAgent) Handle(ctx context.Context, _ map[string]any, _ *agent.Context) (*model.AgentOutcome, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHandleNotifiesLeftovers(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(p map[string]any) bool {
		unresolved, ok := p["unresolved"].(map[string]any)
		return ok && p["entity_name"] == "Ferme Auberge" && unresolved["mystery"] == "42" && p["run_id"] != ""
	})).Once()

	co := New(Options{
		Backend:  store.NewDisabled("test"),
		Service:  &stubService{},
		Registry: agent.NewRegistryOf(newFake(model.AgentIdentity, "name")),
		Notifier: notifier,
	})

	_, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{
		"name":    "Ferme Auberge",
		"mystery": "42",
	}))
	require.NoError(t, err)
	co.Wait()

	notifier.AssertExpectations(t)
}

func TestHandleNoLeftoversNoNotification(t *testing.T) {
	notifier := new(mockNotifier)
	co := New(Options{
		Backend:  store.NewDisabled("test"),
		Service:  &stubService{},
		Registry: agent.NewRegistryOf(newFake(model.AgentIdentity, "name")),
		Notifier: notifier,
	})

	res, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{"name": "Seul"}))
	require.NoError(t, err)
	co.Wait()

	assert.Empty(t, res.Leftovers)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func legacyExport() normalize.Envelope {
	return normalize.ListEnvelope([]any{map[string]any{
		"dataProvidingOrg": "ORGRUN000001",
		"data": []any{
			map[string]any{
				"Nom_OTI":               "Le Relais Commerson",
				"Groupe catégorie":      "Restauration",
				"Nom catégorie":         "Restaurant",
				"Nom sous catégorie":    "Restaurant",
				"Numéro":                "37",
				"rue":                   "rue Boisjoly Potier",
				"Code Postal":           97418,
				"ville":                 "Le Tampon",
				"Localisations":         "Village,Milieu rural",
				"Coordonnées GPS":       "-21.204197, 55.577417",
				"E-Mail":                "info@example.com",
				"Contact principale":    "0262275287",
				"Autre téléphone":       "0692600544",
				"Web":                   "https://example.com",
				"Prestations sur place": "parking, wifi",
				"Mode de paiement":      "Carte Bancaire,Espèces",
				"Langues":               "français,anglais",
				"Descriptif OTI":        "Description",
				"Accroche OTI":          "Summary",
				"Status":                "Ouvert",
				"Handicap":              true,
				"Animaux":               false,
				"id OTI":                "ABC123",
			},
			map[string]any{"data": []any{map[string]any{
				"Presta ID": "P001", "Nom": "Adenor", "Prénom": "Jean-Luc", "Email": "jean@example.com",
			}}},
			map[string]any{"data": []any{map[string]any{
				"Horaires_id": "H001", "jours": "Lundi , Mardi", "AM_Start": "09:00", "AM_Finish": "17:00",
			}}},
			map[string]any{"data": []any{map[string]any{
				"id_multimedia": "M001", "lien": "https://example.com/photo.jpg", "type": "image/jpeg",
			}}},
			map[string]any{"data": []any{map[string]any{
				"Type_R_S": "facebook", "URL": "https://facebook.com/relais",
			}}},
		},
	}})
}

func TestHandleLegacyExportLeavesNothingUnrouted(t *testing.T) {
	backend := store.NewDisabled("test")
	notifier := new(mockNotifier)
	co := New(Options{
		Backend:  backend,
		Service:  classify.NewRuleBased(),
		Registry: agent.NewRegistry(agent.Deps{Backend: backend, Service: classify.NewRuleBased()}),
		Notifier: notifier,
	})

	res, err := co.Handle(context.Background(), legacyExport())
	require.NoError(t, err)
	co.Wait()

	assert.Empty(t, res.Leftovers)
	assert.Equal(t, true, fragmentFor(t, res, model.AgentLocation).Payload["accessible"])
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestHandleEmptyPayload(t *testing.T) {
	co := newTestCoordinator(&stubService{}, newFake(model.AgentIdentity, "name"))
	_, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, normalize.ErrEmptyPayload)
}

func TestHandleWithRuleBasedAgentsAndNoDatabase(t *testing.T) {
	backend := store.NewDisabled("no database configured")
	co := New(Options{
		Backend:  backend,
		Service:  classify.NewRuleBased(),
		Registry: agent.NewRegistry(agent.Deps{Backend: backend, Service: classify.NewRuleBased()}),
	})

	res, err := co.Handle(context.Background(), normalize.MappingEnvelope(map[string]any{
		"name":      "Hotel Le Lagon",
		"telephone": "0262 24 50 00",
	}))
	require.NoError(t, err)
	co.Wait()

	assert.Equal(t, model.AgentIdentity, res.Fragments[0].Agent)
	assert.Empty(t, res.ObjectID)

	c := fragmentFor(t, res, model.AgentContact)
	assert.Equal(t, model.FragmentProcessed, c.Status)
	require.NotNil(t, c.Outcome)
	assert.Equal(t, model.OutcomeSkipped, c.Outcome.Status)
	assert.Contains(t, c.Outcome.SkipReasons(), model.SkipMissingObjectID)

	resp := res.Response()
	assert.Equal(t, "Hotel Le Lagon", resp.EntityName)
	assert.Len(t, resp.RoutedFragments, len(res.Fragments))
	assert.NotNil(t, resp.UnresolvedFragments)
}

func TestHandleReviewsRecurringErrors(t *testing.T) {
	failing := newFake(model.AgentLocation, "city")
	failing.handle = func(map[string]any, *agent.Context) (*model.AgentOutcome, error) {
		return nil, errors.New("postcode too long")
	}
	co := New(Options{
		Backend:               store.NewDisabled("test"),
		Service:               &stubService{routes: map[string]string{"city": model.AgentLocation}},
		Registry:              agent.NewRegistryOf(newFake(model.AgentIdentity, "name"), failing),
		VerificationThreshold: 2,
	})

	env := normalize.MappingEnvelope(map[string]any{"name": "Gite", "city": "Cilaos"})
	first, err := co.Handle(context.Background(), env)
	require.NoError(t, err)
	assert.Empty(t, first.Review.Adjustments)

	second, err := co.Handle(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, second.Review.Adjustments, 1)
	assert.Equal(t, model.AgentLocation, second.Review.Adjustments[0].Agent)
	assert.Contains(t, second.Review.Adjustments[0].Guidance, "postcode too long")

	count, _ := co.Guidance().ErrorSummary(model.AgentLocation)
	assert.Zero(t, count)
}
