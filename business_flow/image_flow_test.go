package businessflow

import (
	"context"
	"strings"
	"testing"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	testingutil "github.com/casaflow/casaflow/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageFlow(testDB *testingutil.TestDB, llm services.LLMService, imageGen services.ImageGenService, storage services.StorageService) ImageFlow {
	return NewImageFlow(
		repository.NewContentItemRepository(testDB.DB),
		repository.NewAIRequestRepository(testDB.DB),
		repository.NewTenantRepository(testDB.DB),
		repository.NewTenantMemberRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		llm,
		imageGen,
		storage,
		testDB.DB,
	)
}

// realImageBytes renders an actual PNG so the normalization step has
// something decodable to chew on.
func realImageBytes(t *testing.T) []byte {
	t.Helper()

	result, err := services.NewPlaceholderImageService(640, 640).Generate(context.Background(), services.ImageRequest{Prompt: "test fixture"})
	require.NoError(t, err)
	return result.Data
}

func TestGenerateImage(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("Success", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 3, 2026)
			require.NoError(t, err)
			item, err := fixtures.CreateTestContentItem(tenant, calendar)
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse("photo-realistic bright apartment interior, wide angle", 120, 40)
			imageGen := services.NewMockImageGenService()
			imageGen.Result.Data = realImageBytes(t)
			imageGen.Result.MimeType = "image/png"
			storage := services.NewMockStorageService()

			flow := newImageFlow(testDB, llm, imageGen, storage)

			resp, err := flow.GenerateImage(ctx, tenant.UUID.String(), user.ID, &dto.GenerateImageRequest{
				ItemUUID:    item.UUID.String(),
				StylePrompt: "warm afternoon light",
			}, meta)
			require.NoError(t, err)

			assert.Equal(t, models.ContentItemStatusImageGenerated.String(), resp.Status)
			assert.True(t, strings.HasPrefix(resp.ImageURL, storage.BaseURL+"/"+tenant.Slug+"/content/"))
			assert.NotZero(t, resp.AIRequestID)

			// The image provider receives the rewritten prompt
			require.Len(t, imageGen.Prompts, 1)
			assert.Contains(t, imageGen.Prompts[0], "photo-realistic")

			// The uploaded object is the normalized JPEG, not the raw bytes
			require.Len(t, storage.Objects, 1)
			for _, data := range storage.Objects {
				assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])
			}

			// One row for the prompt rewrite, one for the render
			var rows []models.AIRequest
			require.NoError(t, testDB.DB.Where("tenant_id = ?", tenant.ID).Order("id").Find(&rows).Error)
			require.Len(t, rows, 2)
			assert.Equal(t, models.AIRequestTypeImagePrompt, rows[0].RequestType)
			assert.Equal(t, models.AIRequestTypeImageGeneration, rows[1].RequestType)
			assert.Equal(t, models.AIRequestStatusSuccess, rows[0].Status)
			assert.Equal(t, models.AIRequestStatusSuccess, rows[1].Status)

			var stored models.ContentItem
			require.NoError(t, testDB.DB.First(&stored, item.ID).Error)
			assert.Equal(t, models.ContentItemStatusImageGenerated, stored.Status)
			require.NotNil(t, stored.ImageURL)
			assert.Equal(t, resp.ImageURL, *stored.ImageURL)
		})

		t.Run("PromptRewriteFailureIsBestEffort", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 4, 2026)
			require.NoError(t, err)
			item, err := fixtures.CreateTestContentItem(tenant, calendar)
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithError(&services.ProviderError{Provider: "claude", Message: "overloaded", StatusCode: 529})
			imageGen := services.NewMockImageGenService()
			imageGen.Result.Data = realImageBytes(t)
			storage := services.NewMockStorageService()

			flow := newImageFlow(testDB, llm, imageGen, storage)

			resp, err := flow.GenerateImage(ctx, tenant.UUID.String(), user.ID, &dto.GenerateImageRequest{ItemUUID: item.UUID.String()}, meta)
			require.NoError(t, err)
			assert.Equal(t, models.ContentItemStatusImageGenerated.String(), resp.Status)

			// The failed rewrite is ledgered as an error, the render succeeds
			// with the locally built prompt
			var rows []models.AIRequest
			require.NoError(t, testDB.DB.Where("tenant_id = ?", tenant.ID).Order("id").Find(&rows).Error)
			require.Len(t, rows, 2)
			assert.Equal(t, models.AIRequestStatusError, rows[0].Status)
			assert.Equal(t, models.AIRequestStatusSuccess, rows[1].Status)
			require.Len(t, imageGen.Prompts, 1)
			assert.Contains(t, imageGen.Prompts[0], item.Topic)
		})

		t.Run("RenderFailureRevertsItem", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 5, 2026)
			require.NoError(t, err)
			item, err := fixtures.CreateTestContentItem(tenant, calendar)
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse("prompt", 50, 10)
			imageGen := services.NewMockImageGenService()
			imageGen.Err = &services.ProviderError{Provider: "gemini", Message: "render timed out", Timeout: true}
			storage := services.NewMockStorageService()

			flow := newImageFlow(testDB, llm, imageGen, storage)

			_, err = flow.GenerateImage(ctx, tenant.UUID.String(), user.ID, &dto.GenerateImageRequest{ItemUUID: item.UUID.String()}, meta)
			require.Error(t, err)
			assert.True(t, IsProviderTimeout(err))
			assert.Empty(t, storage.Objects)

			var stored models.ContentItem
			require.NoError(t, testDB.DB.First(&stored, item.ID).Error)
			assert.Equal(t, models.ContentItemStatusAIGenerated, stored.Status)
			assert.Nil(t, stored.ImageURL)

			// Rewrite row plus the timed-out render row
			var rows []models.AIRequest
			require.NoError(t, testDB.DB.Where("tenant_id = ?", tenant.ID).Order("id").Find(&rows).Error)
			require.Len(t, rows, 2)
			assert.Equal(t, models.AIRequestStatusTimeout, rows[1].Status)
		})

		t.Run("PublishedItemRejected", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 6, 2026)
			require.NoError(t, err)
			item, err := fixtures.CreateTestContentItem(tenant, calendar)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(item).Update("status", models.ContentItemStatusPublished).Error)

			flow := newImageFlow(testDB, services.NewMockLLMService(), services.NewMockImageGenService(), services.NewMockStorageService())

			_, err = flow.GenerateImage(ctx, tenant.UUID.String(), user.ID, &dto.GenerateImageRequest{ItemUUID: item.UUID.String()}, meta)
			require.Error(t, err)
			assert.True(t, IsItemHasNoImagePending(err))
		})

		t.Run("ItemFromOtherTenantHidden", func(t *testing.T) {
			tenantA, userA, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			tenantB, _, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendarB, err := fixtures.CreateTestCalendar(tenantB, 7, 2026)
			require.NoError(t, err)
			foreignItem, err := fixtures.CreateTestContentItem(tenantB, calendarB)
			require.NoError(t, err)

			flow := newImageFlow(testDB, services.NewMockLLMService(), services.NewMockImageGenService(), services.NewMockStorageService())

			_, err = flow.GenerateImage(ctx, tenantA.UUID.String(), userA.ID, &dto.GenerateImageRequest{ItemUUID: foreignItem.UUID.String()}, meta)
			require.Error(t, err)
			assert.True(t, IsContentItemNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
