package model

// Ref is a value/label pair returned by the brand, model and model-year
// listings. Value is an opaque identifier used as the key of the next request.
type Ref struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
