package api

import (
	"context"
	"net/url"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/models"
)

const (
	resKeywords     = "keywords"
	resServiceAreas = "service-areas"
	resServices     = "services"
	resPrompts      = "prompts"
	resJobs         = "jobs"
)

// ListBusinesses lists businesses.
func (a *API) ListBusinesses(ctx context.Context, opts ListOptions) ([]models.Business, *models.Pagination, error) {
	return list[models.Business](ctx, a, "/api/businesses", "businesses", opts)
}

// GetBusiness fetches one business.
func (a *API) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	return getOne[models.Business](ctx, a, businessPath(id), "business")
}

// GetBusinessRaw fetches one business as untyped JSON, for form hydration.
func (a *API) GetBusinessRaw(ctx context.Context, id string) (map[string]any, error) {
	out, err := getOne[map[string]any](ctx, a, businessPath(id), "business")
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// CreateBusiness creates a business.
func (a *API) CreateBusiness(ctx context.Context, in models.BusinessInput) (*models.Business, error) {
	return createOne[models.Business](ctx, a, "/api/businesses", "business", in)
}

// UpdateBusiness replaces a business's writable fields.
func (a *API) UpdateBusiness(ctx context.Context, id string, in models.BusinessInput) (*models.Business, error) {
	return updateOne[models.Business](ctx, a, businessPath(id), "business", in)
}

// DeleteBusiness deletes a business.
func (a *API) DeleteBusiness(ctx context.Context, id string) error {
	return a.remove(ctx, businessPath(id))
}

// ListKeywords lists one page of a business's keywords.
func (a *API) ListKeywords(ctx context.Context, businessID string, opts ListOptions) ([]models.Keyword, *models.Pagination, error) {
	return list[models.Keyword](ctx, a, subPath(businessID, resKeywords), resKeywords, opts)
}

// CreateKeyword adds a keyword.
func (a *API) CreateKeyword(ctx context.Context, businessID string, in models.KeywordInput) (*models.Keyword, error) {
	return createOne[models.Keyword](ctx, a, subPath(businessID, resKeywords), "keyword", in)
}

// UpdateKeyword updates a keyword.
func (a *API) UpdateKeyword(ctx context.Context, businessID, id string, in models.KeywordInput) (*models.Keyword, error) {
	return updateOne[models.Keyword](ctx, a, itemPath(businessID, resKeywords, id), "keyword", in)
}

// DeleteKeyword removes a keyword.
func (a *API) DeleteKeyword(ctx context.Context, businessID, id string) error {
	return a.remove(ctx, itemPath(businessID, resKeywords, id))
}

// ListServiceAreas lists one page of a business's service areas.
func (a *API) ListServiceAreas(
	ctx context.Context, businessID string, opts ListOptions,
) ([]models.ServiceArea, *models.Pagination, error) {
	return list[models.ServiceArea](ctx, a, subPath(businessID, resServiceAreas), "service_areas", opts)
}

// CreateServiceArea adds a service area.
func (a *API) CreateServiceArea(ctx context.Context, businessID string, in models.ServiceAreaInput) (*models.ServiceArea, error) {
	return createOne[models.ServiceArea](ctx, a, subPath(businessID, resServiceAreas), "service_area", in)
}

// UpdateServiceArea updates a service area.
func (a *API) UpdateServiceArea(
	ctx context.Context, businessID, id string, in models.ServiceAreaInput,
) (*models.ServiceArea, error) {
	return updateOne[models.ServiceArea](ctx, a, itemPath(businessID, resServiceAreas, id), "service_area", in)
}

// DeleteServiceArea removes a service area.
func (a *API) DeleteServiceArea(ctx context.Context, businessID, id string) error {
	return a.remove(ctx, itemPath(businessID, resServiceAreas, id))
}

// ListServices lists one page of a business's service offerings.
func (a *API) ListServices(
	ctx context.Context, businessID string, opts ListOptions,
) ([]models.ServiceOffering, *models.Pagination, error) {
	return list[models.ServiceOffering](ctx, a, subPath(businessID, resServices), resServices, opts)
}

// CreateService adds a service offering.
func (a *API) CreateService(
	ctx context.Context, businessID string, in models.ServiceOfferingInput,
) (*models.ServiceOffering, error) {
	return createOne[models.ServiceOffering](ctx, a, subPath(businessID, resServices), "service", in)
}

// UpdateService updates a service offering.
func (a *API) UpdateService(
	ctx context.Context, businessID, id string, in models.ServiceOfferingInput,
) (*models.ServiceOffering, error) {
	return updateOne[models.ServiceOffering](ctx, a, itemPath(businessID, resServices, id), "service", in)
}

// DeleteService removes a service offering.
func (a *API) DeleteService(ctx context.Context, businessID, id string) error {
	return a.remove(ctx, itemPath(businessID, resServices, id))
}

// ListPrompts lists a business's prompt templates.
func (a *API) ListPrompts(
	ctx context.Context, businessID string, opts ListOptions,
) ([]models.PromptTemplate, *models.Pagination, error) {
	return list[models.PromptTemplate](ctx, a, subPath(businessID, resPrompts), resPrompts, opts)
}

// GetPrompt fetches one prompt template.
func (a *API) GetPrompt(ctx context.Context, businessID, id string) (*models.PromptTemplate, error) {
	return getOne[models.PromptTemplate](ctx, a, itemPath(businessID, resPrompts, id), "prompt")
}

// CreatePrompt adds a prompt template.
func (a *API) CreatePrompt(
	ctx context.Context, businessID string, in models.PromptTemplateInput,
) (*models.PromptTemplate, error) {
	return createOne[models.PromptTemplate](ctx, a, subPath(businessID, resPrompts), "prompt", in)
}

// UpdatePrompt updates a prompt template. The server bumps its version.
func (a *API) UpdatePrompt(
	ctx context.Context, businessID, id string, in models.PromptTemplateInput,
) (*models.PromptTemplate, error) {
	return updateOne[models.PromptTemplate](ctx, a, itemPath(businessID, resPrompts, id), "prompt", in)
}

// DeletePrompt removes a prompt template.
func (a *API) DeletePrompt(ctx context.Context, businessID, id string) error {
	return a.remove(ctx, itemPath(businessID, resPrompts, id))
}

// CreateJob queues a generation job.
func (a *API) CreateJob(ctx context.Context, businessID string, in models.JobInput) (*models.Job, error) {
	return createOne[models.Job](ctx, a, subPath(businessID, resJobs), "job", in)
}

// ListJobs lists a business's jobs. Filter by state with ListOptions.Status.
func (a *API) ListJobs(ctx context.Context, businessID string, opts ListOptions) ([]models.Job, *models.Pagination, error) {
	return list[models.Job](ctx, a, subPath(businessID, resJobs), resJobs, opts)
}

// GetJob fetches a job by id.
func (a *API) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return getOne[models.Job](ctx, a, "/api/jobs/"+url.PathEscape(jobID), "job")
}

// CancelJob asks the server to stop a job. The returned job is nil when the
// server answers without a body.
func (a *API) CancelJob(ctx context.Context, jobID string) (*models.Job, error) {
	return createOne[models.Job](ctx, a, "/api/jobs/"+url.PathEscape(jobID)+"/cancel", "job", nil)
}
