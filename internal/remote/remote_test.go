package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

func TestParseApplication_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/parsers/application", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "zayavlenie.docx", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"number":    "2025-001",
				"applicant": "Ivanov I.I.",
				"cadnum":    "54:35:000001:42",
			},
		})
	}))
	defer server.Close()

	client := NewParserClient(server.URL, testTimeout)
	parsed, err := client.ParseApplication(context.Background(), "zayavlenie.docx", []byte("docx-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "2025-001", parsed.Number)
	assert.Equal(t, "Ivanov I.I.", parsed.Applicant)
	assert.Equal(t, "54:35:000001:42", parsed.Cadnum)
}

func TestParseApplication_WrongExtension_NoNetworkCall(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewParserClient(server.URL, testTimeout)
	parsed, err := client.ParseApplication(context.Background(), "zayavlenie.pdf", []byte("pdf"))

	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "validation failures must not reach the network")
}

func TestParseApplication_RemoteRejected_MessageVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"detail": "document structure not recognized",
		})
	}))
	defer server.Close()

	client := NewParserClient(server.URL, testTimeout)
	_, err := client.ParseApplication(context.Background(), "bad.docx", []byte("junk"))

	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "document structure not recognized", Message(err))
}

func TestParseApplication_EnvelopeFailure_Rejected(t *testing.T) {
	// Some upstreams answer 200 with success:false and the failure in
	// the detail field.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"detail":  "application form is missing required fields",
		})
	}))
	defer server.Close()

	client := NewParserClient(server.URL, testTimeout)
	_, err := client.ParseApplication(context.Background(), "bad.docx", []byte("junk"))

	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "application form is missing required fields", Message(err))
}

func TestParseApplication_ServerError_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewParserClient(server.URL, testTimeout)
	_, err := client.ParseApplication(context.Background(), "ok.docx", []byte("docx"))

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseApplication_NetworkFailure_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening

	client := NewParserClient(server.URL, testTimeout)
	_, err := client.ParseApplication(context.Background(), "ok.docx", []byte("docx"))

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseExtract_NotLand_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"cadnum":  "54:35:000001:9000",
				"is_land": false,
			},
		})
	}))
	defer server.Close()

	client := NewParserClient(server.URL, testTimeout)
	_, err := client.ParseExtract(context.Background(), "vypiska.xml", []byte("<xml/>"))

	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, Message(err), "land parcel")
}

func TestParseExtract_ZipAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"cadnum":  "54:35:000001:42",
				"address": "Novosibirsk, Lenina 1",
				"is_land": true,
			},
		})
	}))
	defer server.Close()

	client := NewParserClient(server.URL, testTimeout)
	parsed, err := client.ParseExtract(context.Background(), "vypiska.ZIP", []byte("zip"))

	require.NoError(t, err)
	assert.Equal(t, "54:35:000001:42", parsed.Cadnum)
}

func TestAnalyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/analysis/spatial", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "54:35:000001:42", req["cadnum"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"zone":     "Zh-1",
				"district": "Central",
				"capital_objects": []map[string]interface{}{
					{"cadnum": "54:35:000001:101", "kind": "building"},
				},
				"restricted_zones": []map[string]interface{}{},
			},
		})
	}))
	defer server.Close()

	client := NewAnalyzerClient(server.URL, testTimeout)
	analysis, err := client.Analyze(context.Background(), "54:35:000001:42", nil)

	require.NoError(t, err)
	assert.Equal(t, "Zh-1", analysis.Zone)
	require.Len(t, analysis.CapitalObjects, 1)
	assert.Equal(t, "54:35:000001:101", analysis.CapitalObjects[0].Cadnum)
}

func TestGenerate_FilenameFromContentDisposition(t *testing.T) {
	docBytes := []byte{0x50, 0x4b, 0x03, 0x04}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate/tu", r.URL.Path)
		w.Header().Set("Content-Disposition", `attachment; filename="TU_2025_42.zip"`)
		w.Header().Set("Content-Type", "application/zip")
		w.Write(docBytes)
	}))
	defer server.Close()

	client := NewGeneratorClient(server.URL, testTimeout)
	artifact, err := client.Generate(context.Background(), DocTuRequest, map[string]string{"cadnum": "x"})

	require.NoError(t, err)
	assert.Equal(t, "TU_2025_42.zip", artifact.Filename)
	assert.Equal(t, docBytes, artifact.Bytes)
}

func TestGenerate_FallbackFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("doc"))
	}))
	defer server.Close()

	client := NewGeneratorClient(server.URL, testTimeout)
	artifact, err := client.Generate(context.Background(), DocRefusal, nil)

	require.NoError(t, err)
	assert.Equal(t, "refusal.bin", artifact.Filename)
}

func TestGenerate_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{"detail": "payload incomplete"})
	}))
	defer server.Close()

	client := NewGeneratorClient(server.URL, testTimeout)
	_, err := client.Generate(context.Background(), DocGradplan, nil)

	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "payload incomplete", Message(err))
}

func TestCreateCard_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/kaiten/cards", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2025-001 Ivanov I.I.", req["title"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id":    int64(777),
				"title": "2025-001 Ivanov I.I.",
				"url":   "https://kaiten.example/card/777",
			},
		})
	}))
	defer server.Close()

	client := NewKaitenClient(server.URL, testTimeout)
	card, err := client.CreateCard(context.Background(), "2025-001 Ivanov I.I.", "cadnum: 54:35:000001:42", nil)

	require.NoError(t, err)
	assert.Equal(t, int64(777), card.ID)
	assert.Equal(t, "https://kaiten.example/card/777", card.URL)
}

func TestCheckExtension(t *testing.T) {
	assert.NoError(t, CheckExtension("file.docx", ".docx"))
	assert.NoError(t, CheckExtension("FILE.DOCX", ".docx"))
	assert.NoError(t, CheckExtension("archive.zip", ".xml", ".zip"))
	assert.ErrorIs(t, CheckExtension("file.doc", ".docx"), ErrValidation)
	assert.ErrorIs(t, CheckExtension("noext", ".docx"), ErrValidation)
}
