package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const syncHash = "$pbkdf2-sha256$i=25000,l=32$c2FsdA$a2V5"

func TestSyncClientsHandler(t *testing.T) {
	result := domain.NewSyncResult("01J00000000000000000000000")
	result.Record("c1", domain.SyncStatusCreated, nil)
	result.Record("c2", domain.SyncStatusDeleted, nil)

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockSyncService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Success",
			body: `{"clients":[{"client_id":"c1","client_secret_hash":"` + syncHash + `","metadata":{"tier":"gold"}}]}`,
			mockSetup: func(m *MockSyncService) {
				m.On("Sync", mock.Anything, mock.MatchedBy(func(clients []domain.ClientSpec) bool {
					return len(clients) == 1 &&
						clients[0].ID == "c1" &&
						clients[0].SecretHash == syncHash &&
						string(clients[0].Metadata["tier"]) == `"gold"`
				})).Return(result, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Malformed JSON",
			body:           `{"clients":[`,
			mockSetup:      func(m *MockSyncService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "S0002",
		},
		{
			name: "Empty list",
			body: `{"clients":[]}`,
			mockSetup: func(m *MockSyncService) {
				m.On("Sync", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyClientList)
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "S0004",
		},
		{
			name: "Invalid hash",
			body: `{"clients":[{"client_id":"c1","client_secret_hash":"plaintext-not-a-hash"}]}`,
			mockSetup: func(m *MockSyncService) {
				m.On("Sync", mock.Anything, mock.Anything).
					Return(nil, domain.ErrInvalidHash.WithField("clients[0].client_secret_hash", errors.New("invalid hash format")))
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "S0003",
		},
		{
			name: "Store failure",
			body: `{"clients":[{"client_id":"c1","client_secret_hash":"` + syncHash + `"}]}`,
			mockSetup: func(m *MockSyncService) {
				m.On("Sync", mock.Anything, mock.Anything).Return(nil, domain.ErrDatabaseQuery.Wrap(errors.New("timeout")))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "S0040",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockSyncService)
			tt.mockSetup(mockService)
			handler := NewSyncHandler(mockService, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/sync/clients", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.SyncClientsHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestSyncClientsHandler_ResultBody(t *testing.T) {
	result := domain.NewSyncResult("01J00000000000000000000000")
	result.Record("c1", domain.SyncStatusUpdated, nil)
	result.Record("c2", domain.SyncStatusDeleted, errors.New("lock timeout"))

	mockService := new(MockSyncService)
	mockService.On("Sync", mock.Anything, mock.Anything).Return(result, nil)
	handler := NewSyncHandler(mockService, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/sync/clients",
		bytes.NewBufferString(`{"clients":[{"client_id":"c1","client_secret_hash":"`+syncHash+`"}]}`))
	w := httptest.NewRecorder()
	handler.SyncClientsHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "01J00000000000000000000000", got["run_id"])
	assert.EqualValues(t, 0, got["created_count"])
	assert.EqualValues(t, 1, got["updated_count"])
	assert.EqualValues(t, 0, got["deleted_count"])
	assert.EqualValues(t, 1, got["failed_count"])
	assert.JSONEq(t, `[
		{"client_id":"c1","status":"updated"},
		{"client_id":"c2","status":"failed","error":"lock timeout"}
	]`, mustJSON(t, got["results"]))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
