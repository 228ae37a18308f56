package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	. "github.com/netaboodkw/teacherhubsite-sub002/apps/api/echo"
	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
	sqlxrepos "github.com/netaboodkw/teacherhubsite-sub002/storage/database/sqlx"
	"github.com/netaboodkw/teacherhubsite-sub002/tests"
)

var sheetRepo gradesheet.Repository

func setup(t *testing.T) Server {
	// set up DB & repos
	db := testutil.OpenDB(t)
	sheetRepo = sqlxrepos.NewSheetRepository(db)

	// set up services
	validate, translator := gradesheet.NewValidator()
	ids := &gradesheet.SequentialIDGenerator{Prefix: "id-"}
	sheetSvc := gradesheet.NewService(sheetRepo, testutil.NewLogger(), validate, translator, ids)

	// set up server
	return NewServer(
		&Options{
			Conf:       testutil.Config(),
			Logger:     testutil.NewLogger(),
			SheetSvc:   sheetSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}
