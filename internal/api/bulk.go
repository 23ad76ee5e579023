package api

import (
	"context"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/batch"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/importer"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/models"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/slug"
)

// Entity labels used by bulk imports.
const (
	EntityKeywords     = "keywords"
	EntityServiceAreas = "service_areas"
	EntityServices     = "services"
)

// requireSlug rejects lines whose dedupe slug comes out empty, such as values
// written only in non-Latin scripts or punctuation. The batch engine counts
// them as malformed.
func requireSlug[T any](parse func(string) (T, bool), slugOf func(T) string) func(string) (T, bool) {
	return func(line string) (T, bool) {
		item, ok := parse(line)
		if !ok || slugOf(item) == "" {
			var zero T
			return zero, false
		}
		return item, true
	}
}

// BilingualKeywordImporter imports "english, spanish" lines. Both records of
// a pair share the slug of the English value, so the pair is one unit for
// deduplication; a half already on the server is not created again.
func (a *API) BilingualKeywordImporter(businessID string) *batch.Engine[importer.Pair] {
	return batch.New(batch.Config[importer.Pair]{
		Entity: EntityKeywords,
		Parse:  requireSlug(importer.ParsePair, func(p importer.Pair) string { return slug.Make(p.Primary) }),
		Split: func(p importer.Pair) []batch.Part {
			s := slug.Make(p.Primary)
			return []batch.Part{
				a.keywordPart(businessID, models.LanguageEnglish, p.Primary, s),
				a.keywordPart(businessID, models.LanguageSpanish, p.Secondary, s),
			}
		},
		Format:   importer.FormatPair,
		Existing: a.existingKeywords(businessID),
		Limiter:  a.limiter,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})
}

// KeywordImporter imports one keyword per line in a single language.
func (a *API) KeywordImporter(businessID, language string) *batch.Engine[string] {
	return batch.New(batch.Config[string]{
		Entity: EntityKeywords,
		Parse:  requireSlug(importer.ParseSingle, slug.Make),
		Split: func(kw string) []batch.Part {
			return []batch.Part{a.keywordPart(businessID, language, kw, slug.Make(kw))}
		},
		Format:   func(kw string) string { return kw },
		Existing: a.existingKeywords(businessID),
		Limiter:  a.limiter,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})
}

func (a *API) keywordPart(businessID, language, value, s string) batch.Part {
	return batch.Part{
		Key: models.DedupeKey(language, s),
		Create: func(ctx context.Context) error {
			_, err := a.CreateKeyword(ctx, businessID, models.KeywordInput{
				Keyword:  value,
				Slug:     s,
				Language: language,
			})
			return err
		},
	}
}

func (a *API) existingKeywords(businessID string) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		items, err := listAll[models.Keyword](ctx, a, subPath(businessID, resKeywords), resKeywords, ListOptions{})
		if err != nil {
			return nil, err
		}
		keys := make([]string, len(items))
		for i, k := range items {
			keys[i] = k.Key()
		}
		return keys, nil
	}
}

// AreaSlug is the slug of a service area: city and state together, so
// same-named cities in different states stay distinct.
func AreaSlug(a importer.Area) string {
	return slug.Make(a.City + " " + a.State)
}

// ServiceAreaImporter imports "City, State[, County]" lines.
func (a *API) ServiceAreaImporter(businessID string) *batch.Engine[importer.Area] {
	return batch.New(batch.Config[importer.Area]{
		Entity: EntityServiceAreas,
		Parse:  requireSlug(importer.ParseArea, AreaSlug),
		Split: func(area importer.Area) []batch.Part {
			s := AreaSlug(area)
			return []batch.Part{{
				Key: models.DedupeKey("", s),
				Create: func(ctx context.Context) error {
					_, err := a.CreateServiceArea(ctx, businessID, models.ServiceAreaInput{
						City:   area.City,
						State:  area.State,
						County: area.County,
						Slug:   s,
					})
					return err
				},
			}}
		},
		Format: importer.FormatArea,
		Existing: func(ctx context.Context) ([]string, error) {
			items, err := listAll[models.ServiceArea](ctx, a, subPath(businessID, resServiceAreas), "service_areas", ListOptions{})
			if err != nil {
				return nil, err
			}
			keys := make([]string, len(items))
			for i, item := range items {
				keys[i] = item.Key()
			}
			return keys, nil
		},
		Limiter: a.limiter,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
}

// ServiceImporter imports "Name[, Spanish name]" lines. Each line is one
// record carrying both names.
func (a *API) ServiceImporter(businessID string) *batch.Engine[importer.Service] {
	return batch.New(batch.Config[importer.Service]{
		Entity: EntityServices,
		Parse:  requireSlug(importer.ParseService, func(svc importer.Service) string { return slug.Make(svc.Name) }),
		Split: func(svc importer.Service) []batch.Part {
			s := slug.Make(svc.Name)
			return []batch.Part{{
				Key: models.DedupeKey("", s),
				Create: func(ctx context.Context) error {
					_, err := a.CreateService(ctx, businessID, models.ServiceOfferingInput{
						Name:   svc.Name,
						NameES: svc.NameES,
						Slug:   s,
					})
					return err
				},
			}}
		},
		Format: importer.FormatService,
		Existing: func(ctx context.Context) ([]string, error) {
			items, err := listAll[models.ServiceOffering](ctx, a, subPath(businessID, resServices), resServices, ListOptions{})
			if err != nil {
				return nil, err
			}
			keys := make([]string, len(items))
			for i, item := range items {
				keys[i] = item.Key()
			}
			return keys, nil
		},
		Limiter: a.limiter,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
}
