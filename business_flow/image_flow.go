package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

const (
	promptRewriteMaxTokens   = 1024
	promptRewriteTemperature = 0.7
)

// ImageFlow handles image generation for content items
type ImageFlow interface {
	GenerateImage(ctx context.Context, tenantUUID string, userID uint, request *dto.GenerateImageRequest, metadata *ClientMetadata) (*dto.GenerateImageResponse, error)
}

// ImageFlowImpl implements the image generation business flow
type ImageFlowImpl struct {
	itemRepo   repository.ContentItemRepository
	ledgerRepo repository.AIRequestRepository
	tenantRepo repository.TenantRepository
	memberRepo repository.TenantMemberRepository
	auditRepo  repository.AuditLogRepository
	llm        services.LLMService
	imageGen   services.ImageGenService
	storage    services.StorageService
	db         *gorm.DB
}

// NewImageFlow creates a new image flow instance
func NewImageFlow(
	itemRepo repository.ContentItemRepository,
	ledgerRepo repository.AIRequestRepository,
	tenantRepo repository.TenantRepository,
	memberRepo repository.TenantMemberRepository,
	auditRepo repository.AuditLogRepository,
	llm services.LLMService,
	imageGen services.ImageGenService,
	storage services.StorageService,
	db *gorm.DB,
) ImageFlow {
	return &ImageFlowImpl{
		itemRepo:   itemRepo,
		ledgerRepo: ledgerRepo,
		tenantRepo: tenantRepo,
		memberRepo: memberRepo,
		auditRepo:  auditRepo,
		llm:        llm,
		imageGen:   imageGen,
		storage:    storage,
		db:         db,
	}
}

// GenerateImage renders the visual for a content item. The prompt is first
// rewritten by the text model, then handed to the image provider; each
// provider call leaves its own ledger row. The normalized JPEG is uploaded to
// blob storage and the item is flipped to image_generated.
func (imf *ImageFlowImpl) GenerateImage(ctx context.Context, tenantUUID string, userID uint, request *dto.GenerateImageRequest, metadata *ClientMetadata) (*dto.GenerateImageResponse, error) {
	tenant, _, err := requireMembership(ctx, imf.tenantRepo, imf.memberRepo, tenantUUID, userID)
	if err != nil {
		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", err)
	}

	item, err := imf.itemRepo.ByUUID(ctx, request.ItemUUID)
	if err != nil {
		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", err)
	}
	if item == nil || item.TenantID != tenant.ID {
		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", ErrContentItemNotFound)
	}
	if item.Status == models.ContentItemStatusPublished {
		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", ErrItemHasNoImagePending)
	}

	item.Status = models.ContentItemStatusImageGenerating
	if err := imf.itemRepo.Update(ctx, *item); err != nil {
		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", err)
	}

	prompt := imf.optimizePrompt(ctx, tenant, item, request.StylePrompt, userID)

	result, callErr := imf.imageGen.Generate(ctx, services.ImageRequest{Prompt: prompt})

	entry := ledgerEntry{
		TenantID:          tenant.ID,
		Provider:          imf.imageGen.Provider(),
		Model:             imf.imageGen.Model(),
		RequestType:       models.AIRequestTypeImageGeneration,
		Prompt:            prompt,
		RelatedEntityType: utils.ToPtr(models.AIRelatedEntityContentItem),
		RelatedEntityID:   &item.ID,
		RequesterID:       &userID,
	}

	if callErr != nil {
		entry.Status = models.AIRequestStatusError
		flowErr := classifyProviderError(callErr)
		if flowErr == ErrProviderTimeout {
			entry.Status = models.AIRequestStatusTimeout
		}
		entry.ErrorMessage = utils.ToPtr(callErr.Error())

		if _, ledgerErr := writeLedger(ctx, imf.ledgerRepo, entry); ledgerErr != nil {
			return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", ledgerErr)
		}

		imf.revertItemStatus(ctx, item)

		errMsg := fmt.Sprintf("Image generation failed: %s", callErr.Error())
		_ = recordAudit(ctx, imf.auditRepo, &userID, &tenant.ID, models.AuditActionImageFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", flowErr)
	}

	entry.RawResponse = utils.ToPtr(fmt.Sprintf("%s, %d bytes", result.MimeType, len(result.Data)))
	entry.TokensIn = result.TokensIn
	entry.TokensOut = result.TokensOut
	entry.LatencyMs = result.LatencyMs
	entry.Status = models.AIRequestStatusSuccess

	ledgerRow, err := writeLedger(ctx, imf.ledgerRepo, entry)
	if err != nil {
		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", err)
	}

	normalized, err := services.NormalizeImage(result.Data)
	if err != nil {
		imf.revertItemStatus(ctx, item)

		errMsg := fmt.Sprintf("Image generation failed: %s", err.Error())
		_ = recordAudit(ctx, imf.auditRepo, &userID, &tenant.ID, models.AuditActionImageFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", err)
	}

	objectName := fmt.Sprintf("%s/content/%d_%d.jpg", tenant.Slug, item.ID, time.Now().Unix())

	imageURL, err := imf.storage.Upload(ctx, objectName, normalized, "image/jpeg")
	if err != nil {
		imf.revertItemStatus(ctx, item)

		errMsg := fmt.Sprintf("Image upload failed: %s", err.Error())
		_ = recordAudit(ctx, imf.auditRepo, &userID, &tenant.ID, models.AuditActionImageFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("IMAGE_UPLOAD_FAILED", "Image upload failed", err)
	}

	item.ImageURL = &imageURL
	item.Status = models.ContentItemStatusImageGenerated
	item.AIRequestID = &ledgerRow.ID

	if err := imf.itemRepo.Update(ctx, *item); err != nil {
		return nil, NewBusinessError("IMAGE_GENERATION_FAILED", "Image generation failed", err)
	}

	msg := fmt.Sprintf("Image generated for content item %d", item.ID)
	_ = recordAudit(ctx, imf.auditRepo, &userID, &tenant.ID, models.AuditActionImageGenerated, msg, true, nil, metadata)

	return &dto.GenerateImageResponse{
		ItemUUID:    item.UUID.String(),
		ImageURL:    imageURL,
		Status:      item.Status.String(),
		AIRequestID: ledgerRow.ID,
		CostUSD:     ledgerRow.CostUSD,
	}, nil
}

// Private helper methods

const imagePromptSystemPrompt = `You turn social media copy into a short, concrete ` +
	`prompt for a photo-realistic image model. Answer with the prompt text only, ` +
	`no preamble and no quotes.`

// optimizePrompt asks the text model to rewrite the raw prompt for the image
// provider. The rewrite is best effort: on any failure the locally built
// prompt is used and the failed call is still ledgered.
func (imf *ImageFlowImpl) optimizePrompt(ctx context.Context, tenant *models.Tenant, item *models.ContentItem, stylePrompt string, userID uint) string {
	base := imf.buildImagePrompt(item, stylePrompt)

	completion, err := imf.llm.Complete(ctx, services.CompletionRequest{
		System:      imagePromptSystemPrompt,
		Prompt:      base,
		MaxTokens:   promptRewriteMaxTokens,
		Temperature: promptRewriteTemperature,
	})

	entry := ledgerEntry{
		TenantID:          tenant.ID,
		Provider:          imf.llm.Provider(),
		Model:             imf.llm.Model(),
		RequestType:       models.AIRequestTypeImagePrompt,
		Prompt:            base,
		RelatedEntityType: utils.ToPtr(models.AIRelatedEntityContentItem),
		RelatedEntityID:   &item.ID,
		RequesterID:       &userID,
	}

	if err != nil {
		entry.Status = models.AIRequestStatusError
		if classifyProviderError(err) == ErrProviderTimeout {
			entry.Status = models.AIRequestStatusTimeout
		}
		entry.ErrorMessage = utils.ToPtr(err.Error())
		_, _ = writeLedger(ctx, imf.ledgerRepo, entry)

		return base
	}

	entry.RawResponse = &completion.Text
	entry.TokensIn = completion.TokensIn
	entry.TokensOut = completion.TokensOut
	entry.LatencyMs = completion.LatencyMs
	entry.Status = models.AIRequestStatusSuccess
	_, _ = writeLedger(ctx, imf.ledgerRepo, entry)

	rewritten := strings.TrimSpace(completion.Text)
	if rewritten == "" {
		return base
	}

	return rewritten
}

func (imf *ImageFlowImpl) buildImagePrompt(item *models.ContentItem, stylePrompt string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Real-estate marketing visual for a %s.\n", item.ContentType)
	fmt.Fprintf(&b, "Topic: %s\n", item.Topic)
	fmt.Fprintf(&b, "Copy it accompanies: %s\n", truncate(item.BaseCopy, 500))
	if style := strings.TrimSpace(stylePrompt); style != "" {
		fmt.Fprintf(&b, "Style: %s\n", style)
	}

	return b.String()
}

// revertItemStatus rolls the item back to ai_generated after a failed
// generation attempt so it can be retried.
func (imf *ImageFlowImpl) revertItemStatus(ctx context.Context, item *models.ContentItem) {
	item.Status = models.ContentItemStatusAIGenerated
	_ = imf.itemRepo.Update(ctx, *item)
}
