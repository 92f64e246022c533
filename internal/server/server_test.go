package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/service-ns/paycycle/internal/clock"
	"github.com/service-ns/paycycle/internal/config"
	cycledomain "github.com/service-ns/paycycle/internal/cycle/domain"
	cyclerepo "github.com/service-ns/paycycle/internal/cycle/repository"
	cycleservice "github.com/service-ns/paycycle/internal/cycle/service"
	invoicedomain "github.com/service-ns/paycycle/internal/invoice/domain"
	invoicerepo "github.com/service-ns/paycycle/internal/invoice/repository"
	invoiceservice "github.com/service-ns/paycycle/internal/invoice/service"
	projectionservice "github.com/service-ns/paycycle/internal/projection/service"
	"github.com/service-ns/paycycle/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	engine *gin.Engine
	cycles cycledomain.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&invoicedomain.Invoice{},
		&cycledomain.PaymentCycle{},
		&cycledomain.HistoryRow{},
		&cycledomain.SourceAnnotation{},
		&cycledomain.PaymentFact{},
	))
	require.NoError(t, db.Exec(
		`CREATE TABLE id_sequences (name TEXT PRIMARY KEY, value BIGINT NOT NULL DEFAULT 0)`,
	).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	alloc := sequence.NewAllocator()
	limits := config.NewStaticLimitsHolder(config.DefaultLimitsConfig())

	cycles := cycleservice.New(cycleservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Alloc: alloc,
		Repo:  cyclerepo.Provide(),
	})
	invoices := invoiceservice.New(invoiceservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  fake,
		Alloc:  alloc,
		Limits: limits,
		Repo:   invoicerepo.Provide(),
		Cycles: cycles,
	})
	projections := projectionservice.NewService(projectionservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		Limits: limits,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:           engine,
		Cfg:           config.Config{},
		DB:            db,
		InvoiceSvc:    invoices,
		CycleSvc:      cycles,
		ProjectionSvc: projections,
	})

	return &testServer{engine: engine, cycles: cycles}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createInvoice(t *testing.T, submitter string, total float64) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/invoices", gin.H{
		"submitter":    submitter,
		"division":     "north",
		"object":       "site-7",
		"contractor":   "acme",
		"invoice_no":   "A-100",
		"invoice_date": "2025-02-20",
		"total_amount": total,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload struct {
		Data struct {
			Invoice struct {
				ID string `json:"id"`
			} `json:"invoice"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Data.Invoice.ID
}

func TestCreateInvoiceEndpoint(t *testing.T) {
	ts := newTestServer(t)

	id := ts.createInvoice(t, "ivanov", 1500)
	assert.Equal(t, "FT1", id)
}

func TestCreateInvoiceValidationError(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/invoices", gin.H{
		"division": "north",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var payload struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "validation_error", payload.Error.Type)
}

func TestListInvoicesRequiresCaller(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/invoices", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListInvoicesWithHeaderIdentity(t *testing.T) {
	ts := newTestServer(t)
	ts.createInvoice(t, "ivanov", 1500)
	ts.createInvoice(t, "petrova", 900)

	rec := ts.do(t, http.MethodGet, "/api/invoices", nil, map[string]string{
		"X-Caller-Login": "ivanov",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Data struct {
			Invoices []struct {
				Submitter string `json:"submitter"`
			} `json:"invoices"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data.Invoices, 1)
	assert.Equal(t, "ivanov", payload.Data.Invoices[0].Submitter)
}

func TestRecordHistoryEntryUnknownInvoice(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/invoices/FT999/history", gin.H{
		"actor":      "ivanov",
		"amount_due": 100,
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetPaymentStatusForbiddenForNonAdmin(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createInvoice(t, "ivanov", 1500)

	entry, err := ts.cycles.RecordHistoryEntry(context.Background(), cycledomain.RecordHistoryEntryRequest{
		InvoiceID: id,
		Actor:     "ivanov",
	})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/history/%d/status", entry.Row.ID), gin.H{
		"paid_flag": "yes",
	}, map[string]string{
		"X-Caller-Login": "ivanov",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSetPaymentStatusAsAdminClosesCycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createInvoice(t, "ivanov", 1500)

	entry, err := ts.cycles.RecordHistoryEntry(context.Background(), cycledomain.RecordHistoryEntryRequest{
		InvoiceID: id,
		Actor:     "ivanov",
	})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/history/%d/status", entry.Row.ID), gin.H{
		"paid_flag": "yes",
	}, map[string]string{
		"X-Caller-Login": "admin",
		"X-Caller-Admin": "true",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload struct {
		Data struct {
			CycleClosed bool `json:"cycle_closed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Data.CycleClosed)
}

func TestSetSourceAnnotationInvalidRowID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/history/abc/source", gin.H{
		"division_source": "north",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHistoryQueryFallbackIdentity(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createInvoice(t, "ivanov", 1500)

	_, err := ts.cycles.RecordHistoryEntry(context.Background(), cycledomain.RecordHistoryEntryRequest{
		InvoiceID: id,
		Actor:     "ivanov",
		AmountDue: 500,
	})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/history?login=ivanov", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload struct {
		Data struct {
			Records []struct {
				InvoiceID string `json:"invoice_id"`
			} `json:"records"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data.Records, 1)
	assert.Equal(t, id, payload.Data.Records[0].InvoiceID)
}

func TestCycleSourceAnnotationUnknownCycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/cycles/ZFT99/source", gin.H{
		"division_source": "north",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
