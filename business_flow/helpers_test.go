package businessflow

import (
	"testing"

	"github.com/casaflow/casaflow/models"
	testingutil "github.com/casaflow/casaflow/testing"
	"github.com/stretchr/testify/require"
)

func countLedgerRows(t *testing.T, testDB *testingutil.TestDB, tenantID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, testDB.DB.Model(&models.AIRequest{}).Where("tenant_id = ?", tenantID).Count(&count).Error)
	return count
}
