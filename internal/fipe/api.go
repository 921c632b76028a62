package fipe

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/nao1215/fipecrawler/internal/config"
	"github.com/nao1215/fipecrawler/internal/model"
	"github.com/nao1215/fipecrawler/internal/normalize"
)

// Form parameter names expected by the API.
const (
	paramTable       = "codigoTabelaReferencia"
	paramType        = "codigoTipoVeiculo"
	paramBrand       = "codigoMarca"
	paramModel       = "codigoModelo"
	paramFuel        = "codigoTipoCombustivel"
	paramYear        = "anoModelo"
	paramTypeLabel   = "tipoVeiculo"
	paramQueryKind   = "tipoConsulta"
	queryTraditional = "tradicional"
)

// Poster sends one request to a logical endpoint. *Client implements it.
type Poster interface {
	Post(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// API exposes the hierarchy levels of the price table.
// Every listing keeps the order returned by the server.
type API struct {
	poster     Poster
	normalizer *normalize.Normalizer
	maxYear    int
}

// APIOption configures an API.
type APIOption func(*API)

// WithMaxYear drops reference tables newer than year.
func WithMaxYear(year int) APIOption {
	return func(a *API) {
		a.maxYear = year
	}
}

// NewAPI creates an API on top of poster.
func NewAPI(poster Poster, n *normalize.Normalizer, opts ...APIOption) *API {
	a := &API{
		poster:     poster,
		normalizer: n,
		maxYear:    config.DefaultMaxYear,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tables lists the reference tables up to the configured year.
// Entries without a month label or with a non-numeric year are dropped.
func (a *API) Tables(ctx context.Context) ([]model.ReferenceTable, error) {
	body, err := a.poster.Post(ctx, config.EndpointTables, url.Values{})
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("%s: %w", config.EndpointTables, ErrMalformedPayload)
	}

	var tables []model.ReferenceTable
	root.ForEach(func(_, entry gjson.Result) bool {
		mes := entry.Get("Mes")
		if !mes.Exists() {
			return true
		}
		tbl, ok := a.normalizer.Table(int(entry.Get("Codigo").Int()), mes.String())
		if !ok {
			return true
		}
		if year, _ := strconv.Atoi(tbl.Year); year > a.maxYear {
			return true
		}
		tables = append(tables, tbl)
		return true
	})
	return tables, nil
}

// Brands lists the brands of a vehicle type in a table.
func (a *API) Brands(ctx context.Context, table model.ReferenceTable, vt model.VehicleType) ([]model.Ref, error) {
	body, err := a.poster.Post(ctx, config.EndpointBrands, baseParams(table, vt))
	if err != nil {
		return nil, err
	}
	return parseRefs(config.EndpointBrands, gjson.ParseBytes(body))
}

// Models lists the models of a brand.
func (a *API) Models(ctx context.Context, table model.ReferenceTable, vt model.VehicleType, brand model.Ref) ([]model.Ref, error) {
	params := baseParams(table, vt)
	params.Set(paramBrand, brand.Value)

	body, err := a.poster.Post(ctx, config.EndpointModels, params)
	if err != nil {
		return nil, err
	}
	return parseRefs(config.EndpointModels, gjson.GetBytes(body, "Modelos"))
}

// Years lists the model-years of a model. Each value is "<year>-<fuelCode>".
func (a *API) Years(ctx context.Context, table model.ReferenceTable, vt model.VehicleType, brand, mdl model.Ref) ([]model.Ref, error) {
	params := baseParams(table, vt)
	params.Set(paramBrand, brand.Value)
	params.Set(paramModel, mdl.Value)

	body, err := a.poster.Post(ctx, config.EndpointYears, params)
	if err != nil {
		return nil, err
	}
	return parseRefs(config.EndpointYears, gjson.ParseBytes(body))
}

// Vehicle fetches the detail payload of a leaf. An empty payload or an API
// error object yields ErrNoResult.
func (a *API) Vehicle(ctx context.Context, leaf model.Leaf) ([]byte, error) {
	modelYear, fuel, ok := leaf.SplitYear()
	if !ok {
		return nil, fmt.Errorf("%s: model-year %q: %w", config.EndpointVehicle, leaf.Year.Value, ErrMalformedPayload)
	}

	params := baseParams(leaf.Table, leaf.Type)
	params.Set(paramBrand, leaf.Brand.Value)
	params.Set(paramModel, leaf.Model.Value)
	params.Set(paramFuel, fuel)
	params.Set(paramYear, modelYear)
	params.Set(paramTypeLabel, leaf.Type.Label)
	params.Set(paramQueryKind, queryTraditional)

	body, err := a.poster.Post(ctx, config.EndpointVehicle, params)
	if err != nil {
		return nil, err
	}
	if normalize.IsEmpty(body) {
		return nil, fmt.Errorf("%s %s: %w", config.EndpointVehicle, leaf.Key(), ErrNoResult)
	}
	return body, nil
}

func baseParams(table model.ReferenceTable, vt model.VehicleType) url.Values {
	return url.Values{
		paramTable: {strconv.Itoa(table.ID)},
		paramType:  {strconv.Itoa(vt.ID)},
	}
}

// parseRefs reads a [{Label, Value}] array. Value may be a string or a number.
// An absent array (null body) is an empty listing.
func parseRefs(endpoint string, arr gjson.Result) ([]model.Ref, error) {
	if !arr.Exists() || arr.Type == gjson.Null {
		return nil, nil
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("%s: %w", endpoint, ErrMalformedPayload)
	}

	refs := make([]model.Ref, 0, len(arr.Array()))
	arr.ForEach(func(_, entry gjson.Result) bool {
		value := entry.Get("Value")
		if !value.Exists() || value.String() == "" {
			return true
		}
		refs = append(refs, model.Ref{
			Value: value.String(),
			Label: entry.Get("Label").String(),
		})
		return true
	})
	return refs, nil
}
