package category

type CatalogResponse struct {
	Categories     []Option `json:"categories"`
	PaymentMethods []Option `json:"payment_methods"`
}
