package enums

// IntegrationProvider identifies an external system we hold credentials for.
type IntegrationProvider string

const (
	ProviderMercadoLivre IntegrationProvider = "mercadolivre"
)

// String implements fmt.Stringer.
func (p IntegrationProvider) String() string {
	return string(p)
}

// IntegrationStatus is the credential lifecycle marker.
type IntegrationStatus string

const (
	IntegrationStatusActive IntegrationStatus = "active"
)
