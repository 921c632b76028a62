package crawler

import (
	"context"

	"github.com/nao1215/fipecrawler/internal/fipe"
	"github.com/nao1215/fipecrawler/internal/model"
)

// listFailed reports a failed listing. It returns err when it is fatal,
// nil when the branch should be skipped.
func (e *Engine) listFailed(err error, what string, args ...any) error {
	if fipe.IsFatal(err) {
		return err
	}
	e.logger.Debug("listing failed", "error", err)
	e.log(model.LevelWarning, "Falha ao listar "+what+": %v", append(args, err)...)
	return nil
}

func (e *Engine) walkTable(ctx context.Context, table model.ReferenceTable) error {
	for _, vt := range e.types {
		e.setState(StateEnumeratingBrands)
		brands, err := e.api.Brands(ctx, table, vt)
		if err != nil {
			if err := e.listFailed(err, "marcas de %s (%s)", table, vt.Label); err != nil {
				return err
			}
			continue
		}

		e.sink.OnProgress(model.StageBrands, 0, len(brands))
		for i, brand := range brands {
			if err := e.walkBrand(ctx, model.Leaf{Table: table, Type: vt, Brand: brand}); err != nil {
				return err
			}
			e.sink.OnProgress(model.StageBrands, i+1, len(brands))
		}
	}
	return nil
}

func (e *Engine) walkBrand(ctx context.Context, leaf model.Leaf) error {
	e.setState(StateEnumeratingModels)
	models, err := e.api.Models(ctx, leaf.Table, leaf.Type, leaf.Brand)
	if err != nil {
		return e.listFailed(err, "modelos de %s", leaf.Brand.Label)
	}

	e.sink.OnProgress(model.StageModels, 0, len(models))
	for i, mdl := range models {
		leaf.Model = mdl
		if err := e.walkModel(ctx, leaf); err != nil {
			return err
		}
		e.sink.OnProgress(model.StageModels, i+1, len(models))
	}
	return nil
}

func (e *Engine) walkModel(ctx context.Context, leaf model.Leaf) error {
	e.setState(StateEnumeratingYears)
	years, err := e.api.Years(ctx, leaf.Table, leaf.Type, leaf.Brand, leaf.Model)
	if err != nil {
		return e.listFailed(err, "anos de %s %s", leaf.Brand.Label, leaf.Model.Label)
	}

	e.sink.OnProgress(model.StageYears, 0, len(years))
	for i, year := range years {
		leaf.Year = year
		if err := e.processLeaf(ctx, leaf); err != nil {
			return err
		}
		e.sink.OnProgress(model.StageYears, i+1, len(years))
	}
	return nil
}

// processLeaf fetches and emits one record. Leaves already settled in the
// checkpoint or filtered by fuel are skipped without any event.
func (e *Engine) processLeaf(ctx context.Context, leaf model.Leaf) error {
	key := leaf.Key()
	if e.cp.Settled(key) {
		return nil
	}
	_, fuel, ok := leaf.SplitYear()
	if !ok || (e.fuelFilter != "" && fuel != e.fuelFilter) {
		return nil
	}

	e.setState(StateFetchingDetail)
	payload, err := e.api.Vehicle(ctx, leaf)
	if err != nil {
		if fipe.IsFatal(err) {
			return err
		}
		e.noResult(key, leaf, err)
		return nil
	}
	rec, ok := e.normalizer.Normalize(payload, leaf)
	if !ok {
		e.noResult(key, leaf, fipe.ErrNoResult)
		return nil
	}

	e.cp.MarkProcessed(key)
	e.save(ctx, false)

	e.summary.Records++
	e.sink.OnRecord(*rec)
	e.sink.OnCurrentVehicle(leaf.Brand.Label, leaf.Model.Label, leaf.Year.Label)
	e.sink.OnProgress(model.StageVehicles, e.summary.Records, e.summary.Records)
	return nil
}

// noResult counts an empty detail answer and skips the leaf for good once
// the limit is reached.
func (e *Engine) noResult(key model.VehicleKey, leaf model.Leaf, err error) {
	e.summary.NoResult++
	e.logger.Debug("no detail for leaf", "key", key, "error", err)

	if e.cp.RecordFailure(key, e.maxLeafFailures) {
		e.summary.Skipped++
		e.log(model.LevelWarning, "Veículo ignorado após %d tentativas sem resultado: %s %s (%s)",
			e.maxLeafFailures, leaf.Brand.Label, leaf.Model.Label, leaf.Year.Label)
		return
	}
	e.log(model.LevelWarning, "Sem resultado para %s %s (%s)", leaf.Brand.Label, leaf.Model.Label, leaf.Year.Label)
}
