package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/api"
	"github.com/BlakeDonn/inven/pkg/catalog"
	"github.com/BlakeDonn/inven/pkg/export"
	"github.com/BlakeDonn/inven/pkg/ocr"
	"github.com/BlakeDonn/inven/pkg/pipeline"
	"github.com/BlakeDonn/inven/process/report"
	"github.com/BlakeDonn/inven/process/retry"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// widthReader answers by the crop width, so each capture id gets its own text.
type widthReader map[int]string

func (w widthReader) Extract(_ context.Context, img image.Image, _ ocr.Mode) ocr.Decision {
	return ocr.Decision{Text: w[img.Bounds().Dx()/2]}
}

func setupTestDB(t *testing.T) *gorm.DB {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	cfg := &config.Config{DB: config.DBConfig{DSN: os.Getenv("DB_DSN"), AutoMigrate: true}}
	db, err := openDB(cfg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return db
}

func TestFullFlow(t *testing.T) {
	db := setupTestDB(t)
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard, "", 0)
	ctx := context.Background()

	dir := t.TempDir()
	// title crops are 20px wide, trait crops 30px; id 2 has an unreadable title
	for name, w := range map[string]int{
		"title_cropped_1.png": 20, "trait_cropped_1.png": 30,
		"title_cropped_2.png": 21, "trait_cropped_2.png": 30,
	} {
		require.NoError(t, imaging.Save(imaging.New(w, 8, color.NRGBA{200, 200, 200, 255}), filepath.Join(dir, name)))
	}
	items := catalog.NewItemCatalog([]catalog.Entry{
		{Name: "Ordinary Blade", Type: "Weapon", Rarity: catalog.Rare},
		{Name: "Lequirus's Wicked Thorns", Type: "Weapon", Rarity: catalog.Epic},
	}, logger)
	traits := catalog.NewTraitCatalog([]string{"Attack Speed"})
	first := widthReader{20: "Ordinary Blade", 21: "????", 30: "Attack Speed"}
	pipe := pipeline.New(items, traits, first, pipeline.Config{Workers: 2}, logger)

	// 1. Run and persist
	sum, recs, err := pipe.ProcessDir(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Records)
	run := models.Run{ID: uuid.NewString(), StartedAt: time.Now().UTC(), SourceDir: dir, Groups: sum.Groups, Records: sum.Records}
	t.Cleanup(func() { db.Where("id = ?", run.ID).Delete(&models.Run{}) })
	require.NoError(t, (&export.Postgres{DB: db, Logger: logger}).Export(ctx, run, recs))

	// 2. Read back over HTTP
	r := api.New(pipe, db, api.Config{}, logger).Router()
	resp := performRequest(r, http.MethodGet, "/runs/"+run.ID+"/records", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body struct {
		Run     string            `json:"run"`
		Records []pipeline.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Records, 2)
	assert.Equal(t, "Ordinary Blade", body.Records[0].ItemName)
	assert.Equal(t, catalog.NoItemMatch, body.Records[1].ItemName)

	resp = performRequest(r, http.MethodGet, "/runs/"+uuid.NewString()+"/records", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// 3. Retry the unmatched record with a better read
	better := widthReader{20: "Ordinary Blade", 21: "Lequirus Wicked Thorns", 30: "Attack Speed"}
	pipe2 := pipeline.New(items, traits, better, pipeline.Config{Workers: 1}, logger)
	res, err := retry.Run(ctx, db, pipe2, dir, run.ID, retry.Options{Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Considered)
	assert.Equal(t, 1, res.Updated)

	// 4. Report
	var out bytes.Buffer
	require.NoError(t, report.Run(ctx, db, run.ID, true, &out))
	assert.Contains(t, out.String(), "items_matched=2")
	assert.Contains(t, out.String(), "rarity=Epic count=1")
}
