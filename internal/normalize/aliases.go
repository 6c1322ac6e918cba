package normalize

// Aliases are normalized (NormalizeKey) source field names, tried in order.
var (
	nameKeys        = []string{"name", "establishment_name", "nom_oti", "nom_etablissement", "nom_commercial", "raison_sociale", "nom", "title"}
	categoryKeys    = []string{"category", "establishment_category", "nom_categorie", "categorie"}
	categoryGroup   = []string{"groupe_categorie", "category_group"}
	subcategoryKeys = []string{"subcategory", "establishment_subcategory", "nom_sous_categorie", "sous_categorie"}
	orgKeys         = []string{"source_organization_id", "dataprovidingorg", "data_providing_org", "organization_id", "organisation_id", "org_id"}
	legacyIDKeys    = []string{"legacy_ids", "legacy_id", "id_oti", "oti_id", "identifiant_oti", "record_id", "airtable_id"}

	address1Keys    = []string{"address_line1", "address1", "adresse", "adresse_1", "address"}
	houseNumberKeys = []string{"numero", "numero_rue", "house_number", "no"}
	streetKeys      = []string{"rue", "voie", "street"}
	address2Keys    = []string{"address_line2", "address2", "adresse_2", "complement_adresse", "complement", "lieux_dits", "lieu_dit"}
	postalCodeKeys  = []string{"postal_code", "postcode", "code_postal", "zip", "zip_code", "cp"}
	cityKeys        = []string{"city", "ville", "commune", "localite"}
	countryKeys     = []string{"country", "pays"}
	inseeKeys       = []string{"code_insee", "insee"}
	gpsKeys         = []string{"coordonnees_gps", "gps", "gps_coordinates", "coordinates", "coordonnees", "geolocalisation"}
	latitudeKeys    = []string{"latitude", "lat"}
	longitudeKeys   = []string{"longitude", "lon", "lng", "long"}

	descriptionKeys  = []string{"description", "descriptif_oti", "descriptif", "descriptif_long"}
	summaryKeys      = []string{"summary", "accroche_oti", "accroche", "descriptif_court"}
	statusKeys       = []string{"status", "statut"}
	sourceStatusKeys = []string{"source_status", "etat", "statut_source", "status_source"}

	amenityKeys     = []string{"amenities", "prestations_sur_place", "prestations", "equipements", "equipements_et_services"}
	nearbyKeys      = []string{"nearby_services", "services_a_proximite", "a_proximite", "services_proximite"}
	paymentKeys     = []string{"payment_methods", "mode_de_paiement", "modes_de_paiement", "moyens_de_paiement"}
	languageKeys    = []string{"languages", "langues", "langues_parlees"}
	environmentKeys = []string{"environment_tags", "localisations", "localisation", "environnement"}

	phoneKeys      = []string{"phone", "telephone", "tel", "contact_principale", "contact_principal", "autre_telephone", "mobile", "portable", "telephone_fixe"}
	emailKeys      = []string{"email", "e_mail", "mail", "courriel", "adresse_mail"}
	websiteKeys    = []string{"website", "web", "site_web", "site_internet", "site"}
	accessibleKeys = []string{"accessible", "accessibility", "accessibilite", "handicap", "acces_handicape"}
	petsKeys       = []string{"pets_allowed", "animaux", "animaux_acceptes", "pets"}
)

// Structural markers identifying nested blocks in a work queue.
var (
	providerMarkers = []string{"presta_id", "prestataire_id", "provider_id"}
	scheduleMarkers = []string{"horaires_id", "schedule_id", "jours"}
	mediaMarkers    = []string{"id_multimedia", "media_id"}
	tariffMarkers   = []string{"tarif_id", "id_tarif", "tariff_id"}
	socialMarkers   = []string{"type_r_s", "reseau_social", "social_network"}
)

// Media and social block field aliases.
var (
	mediaURLKeys         = []string{"lien", "url", "link", "href"}
	mediaTitleKeys       = []string{"titre", "title", "nom"}
	mediaDescriptionKeys = []string{"description", "legende"}
	mediaMainKeys        = []string{"principale", "is_main", "main"}
	mediaTypeKeys        = []string{"type", "media_type", "type_media"}
	mediaCreditKeys      = []string{"credit", "copyright"}
	socialNetworkKeys    = []string{"type_r_s", "reseau_social", "social_network", "network"}
	socialURLKeys        = []string{"url", "lien", "link"}
)

// Canonical auxiliary keys written by derivation.
const (
	KeyAddressLine1      = "address_line1"
	KeyAddressLine2      = "address_line2"
	KeyPostalCode        = "postal_code"
	KeyCity              = "city"
	KeyCountry           = "country"
	KeyCodeINSEE         = "code_insee"
	KeyLatitude          = "latitude"
	KeyLongitude         = "longitude"
	KeyDescription       = "description"
	KeySummary           = "summary"
	KeyStatus            = "status"
	KeySourceStatus      = "source_status"
	KeyAmenities         = "amenities"
	KeyNearbyServices    = "nearby_services"
	KeyPaymentMethods    = "payment_methods"
	KeyLanguages         = "languages"
	KeyEnvironmentTags   = "environment_tags"
	KeyPhone             = "phone"
	KeyEmail             = "email"
	KeyWebsite           = "website"
	KeyAccessible        = "accessible"
	KeyPetsAllowed       = "pets_allowed"
	KeyProviders         = "providers"
	KeySchedule          = "schedule"
	KeyMedia             = "media"
	KeyTariffs           = "tariffs"
	KeySocials           = "socials"
	KeyAdditionalBatches = "additional_batches"
	KeyRawPayload        = "raw_payload"
)
