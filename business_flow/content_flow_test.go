package businessflow

import (
	"testing"
	"unicode/utf8"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	testingutil "github.com/casaflow/casaflow/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendarPlan = `{
	"theme": "Autumn open houses",
	"suggestions": [
		{"day": 3, "topic": "Tour: 3br house in Moema", "content_type": "reel", "rationale": "video tours convert"},
		{"day": 10, "topic": "Mortgage rates explained", "content_type": "carousel", "rationale": "education builds trust"},
		{"day": 21, "topic": "Open house weekend", "content_type": "post", "rationale": "event push"}
	],
	"notes": "Lean on video for the first half of the month."
}`

const contentCopy = `{
	"base_copy": "Sun-drenched three bedroom in Moema, steps from Ibirapuera. Book your visit today.",
	"cta": "Agende sua visita",
	"hashtags": ["#moema", "#apartamento"],
	"variants": {
		"instagram_feed": "Sunlight all day in this Moema 3br. Tap the link in bio to book a tour.",
		"facebook": ""
	}
}`

func newContentFlow(testDB *testingutil.TestDB, llm services.LLMService) ContentFlow {
	return NewContentFlow(
		repository.NewContentCalendarRepository(testDB.DB),
		repository.NewContentItemRepository(testDB.DB),
		repository.NewContentVariantRepository(testDB.DB),
		repository.NewAIRequestRepository(testDB.DB),
		repository.NewTenantRepository(testDB.DB),
		repository.NewTenantMemberRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		llm,
		testDB.DB,
	)
}

func TestGenerateCalendar(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("Success", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse(calendarPlan, 540, 880)
			flow := newContentFlow(testDB, llm)

			resp, err := flow.GenerateCalendar(ctx, tenant.UUID.String(), user.ID, &dto.GenerateCalendarRequest{
				Month:      3,
				Year:       2026,
				Objectives: []string{"more seller leads"},
				Offers:     []string{"free valuation"},
			}, meta)
			require.NoError(t, err)

			assert.Equal(t, models.CalendarStatusAIGenerated.String(), resp.Status)
			assert.Equal(t, "Autumn open houses", resp.Theme)
			assert.Len(t, resp.Suggestions, 3)
			assert.Equal(t, "reel", resp.Suggestions[0].ContentType)
			require.NotNil(t, resp.AIRequestID)

			var row models.AIRequest
			require.NoError(t, testDB.DB.First(&row, *resp.AIRequestID).Error)
			assert.Equal(t, models.AIRequestTypeCalendarGeneration, row.RequestType)
			assert.Equal(t, models.AIRequestStatusSuccess, row.Status)
			assert.Contains(t, row.Prompt, "free valuation")

			// The plan is readable afterwards through the lookup path
			fetched, err := flow.GetCalendar(ctx, tenant.UUID.String(), resp.UUID, user.ID)
			require.NoError(t, err)
			assert.Equal(t, resp.ID, fetched.ID)
			assert.Equal(t, "Autumn open houses", fetched.Theme)
			assert.Len(t, fetched.Suggestions, 3)
		})

		t.Run("GetCalendarHiddenAcrossTenants", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			otherTenant, otherUser, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 9, 2026)
			require.NoError(t, err)

			flow := newContentFlow(testDB, services.NewMockLLMService())

			got, err := flow.GetCalendar(ctx, tenant.UUID.String(), calendar.UUID.String(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, calendar.ID, got.ID)

			_, err = flow.GetCalendar(ctx, otherTenant.UUID.String(), calendar.UUID.String(), otherUser.ID)
			require.Error(t, err)
			assert.True(t, IsCalendarNotFound(err))
		})

		t.Run("SlotAlreadyTaken", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse(calendarPlan, 540, 880)
			flow := newContentFlow(testDB, llm)

			req := &dto.GenerateCalendarRequest{Month: 4, Year: 2026}
			_, err = flow.GenerateCalendar(ctx, tenant.UUID.String(), user.ID, req, meta)
			require.NoError(t, err)

			_, err = flow.GenerateCalendar(ctx, tenant.UUID.String(), user.ID, req, meta)
			require.Error(t, err)
			assert.True(t, IsCalendarSlotOccupied(err))
		})

		t.Run("UnparsablePlanFails", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse("here is my plan in bullet points", 200, 50)
			flow := newContentFlow(testDB, llm)

			_, err = flow.GenerateCalendar(ctx, tenant.UUID.String(), user.ID, &dto.GenerateCalendarRequest{Month: 5, Year: 2026}, meta)
			require.Error(t, err)
			assert.True(t, IsUnparsableAIOutput(err))

			// Calendar planning has no fallback, but the spend is still recorded
			assert.Equal(t, int64(1), countLedgerRows(t, testDB, tenant.ID))
		})

		t.Run("DraftSurvivorReusedAndRefreshed", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)

			// The first attempt fails to parse and leaves the slot as a draft
			llm := services.NewMockLLMService().WithResponse("plan: post stuff", 200, 50)
			flow := newContentFlow(testDB, llm)

			_, err = flow.GenerateCalendar(ctx, tenant.UUID.String(), user.ID, &dto.GenerateCalendarRequest{
				Month:      6,
				Year:       2026,
				Objectives: []string{"generate buyer leads"},
			}, meta)
			require.Error(t, err)

			var draft models.ContentCalendar
			require.NoError(t, testDB.DB.Where("tenant_id = ? AND month = ? AND year = ?", tenant.ID, 6, 2026).First(&draft).Error)
			assert.Equal(t, models.CalendarStatusDraft, draft.Status)

			// Retrying fills the same row instead of creating a second one
			llm = services.NewMockLLMService().WithResponse(calendarPlan, 640, 480)
			flow = newContentFlow(testDB, llm)

			resp, err := flow.GenerateCalendar(ctx, tenant.UUID.String(), user.ID, &dto.GenerateCalendarRequest{
				Month:      6,
				Year:       2026,
				Objectives: []string{"generate seller leads"},
			}, meta)
			require.NoError(t, err)
			assert.Equal(t, draft.ID, resp.ID)
			assert.Equal(t, models.CalendarStatusAIGenerated.String(), resp.Status)

			// The stored briefing follows the retry, not the stale draft
			var stored models.ContentCalendar
			require.NoError(t, testDB.DB.First(&stored, draft.ID).Error)
			assert.Equal(t, models.StringSlice{"generate seller leads"}, stored.Objectives)

			var rows int64
			require.NoError(t, testDB.DB.Model(&models.ContentCalendar{}).Where("tenant_id = ?", tenant.ID).Count(&rows).Error)
			assert.Equal(t, int64(1), rows)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestGenerateContentItem(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		meta := NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("ItemAndVariantsAtomic", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 3, 2026)
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse(contentCopy, 420, 360)
			flow := newContentFlow(testDB, llm)

			resp, err := flow.GenerateContentItem(ctx, tenant.UUID.String(), user.ID, &dto.GenerateContentRequest{
				CalendarUUID: calendar.UUID.String(),
				Topic:        "Tour: 3br house in Moema",
				ContentType:  "post",
				Platforms:    []string{models.PlatformInstagramFeed, models.PlatformFacebook},
			}, meta)
			require.NoError(t, err)

			item := resp.Item
			assert.Equal(t, models.ContentItemStatusAIGenerated.String(), item.Status)
			assert.Equal(t, "Agende sua visita", item.CTA)
			assert.Equal(t, []string{"#moema", "#apartamento"}, item.Hashtags)
			require.Len(t, item.Variants, 2)

			// instagram_feed has an adapted copy, facebook's blank variant
			// falls back to the base copy
			byPlatform := map[string]dto.ContentVariantDTO{}
			for _, v := range item.Variants {
				byPlatform[v.Platform] = v
			}
			assert.Contains(t, byPlatform[models.PlatformInstagramFeed].Copy, "Tap the link in bio")
			assert.Equal(t, item.BaseCopy, byPlatform[models.PlatformFacebook].Copy)
			for _, v := range item.Variants {
				assert.Equal(t, utf8.RuneCountInString(v.Copy), v.CharacterCount)
			}

			var storedVariants int64
			require.NoError(t, testDB.DB.Model(&models.ContentVariant{}).Where("tenant_id = ?", tenant.ID).Count(&storedVariants).Error)
			assert.Equal(t, int64(2), storedVariants)
		})

		t.Run("AccentedCopyCountedInRunes", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 4, 2026)
			require.NoError(t, err)

			accentedCopy := `{
				"base_copy": "Cobertura em São Paulo com vista incrível.",
				"cta": "Fale conosco",
				"hashtags": [],
				"variants": {"instagram_feed": "Visite já o apê!"}
			}`
			llm := services.NewMockLLMService().WithResponse(accentedCopy, 180, 90)
			flow := newContentFlow(testDB, llm)

			resp, err := flow.GenerateContentItem(ctx, tenant.UUID.String(), user.ID, &dto.GenerateContentRequest{
				CalendarUUID: calendar.UUID.String(),
				Topic:        "Cobertura com vista",
				ContentType:  "post",
				Platforms:    []string{models.PlatformInstagramFeed},
			}, meta)
			require.NoError(t, err)

			require.Len(t, resp.Item.Variants, 1)
			v := resp.Item.Variants[0]
			assert.Equal(t, "Visite já o apê!", v.Copy)
			assert.Equal(t, 16, v.CharacterCount)
			assert.Greater(t, len(v.Copy), v.CharacterCount)
		})

		t.Run("DuplicateTopicRejected", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 3, 2026)
			require.NoError(t, err)

			llm := services.NewMockLLMService().WithResponse(contentCopy, 420, 360)
			flow := newContentFlow(testDB, llm)

			req := &dto.GenerateContentRequest{
				CalendarUUID: calendar.UUID.String(),
				Topic:        "Open house weekend",
				ContentType:  "post",
			}
			_, err = flow.GenerateContentItem(ctx, tenant.UUID.String(), user.ID, req, meta)
			require.NoError(t, err)

			_, err = flow.GenerateContentItem(ctx, tenant.UUID.String(), user.ID, req, meta)
			require.Error(t, err)
			assert.True(t, IsDuplicateContentTopic(err))
		})

		t.Run("UnknownPlatformRejected", func(t *testing.T) {
			tenant, user, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			calendar, err := fixtures.CreateTestCalendar(tenant, 3, 2026)
			require.NoError(t, err)

			llm := services.NewMockLLMService()
			flow := newContentFlow(testDB, llm)

			_, err = flow.GenerateContentItem(ctx, tenant.UUID.String(), user.ID, &dto.GenerateContentRequest{
				CalendarUUID: calendar.UUID.String(),
				Topic:        "Mortgage rates explained",
				ContentType:  "carousel",
				Platforms:    []string{"myspace"},
			}, meta)
			require.Error(t, err)
			assert.True(t, IsInvalidPlatform(err))
			assert.Empty(t, llm.Calls)
		})

		t.Run("CalendarFromOtherTenantHidden", func(t *testing.T) {
			tenantA, userA, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			tenantB, _, err := fixtures.CreateTestTenantWithAgent()
			require.NoError(t, err)
			foreignCalendar, err := fixtures.CreateTestCalendar(tenantB, 6, 2026)
			require.NoError(t, err)

			flow := newContentFlow(testDB, services.NewMockLLMService())

			_, err = flow.GenerateContentItem(ctx, tenantA.UUID.String(), userA.ID, &dto.GenerateContentRequest{
				CalendarUUID: foreignCalendar.UUID.String(),
				Topic:        "Anything",
				ContentType:  "post",
			}, meta)
			require.Error(t, err)
			assert.True(t, IsCalendarNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
