// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/medianlight/internal/codec"
	"github.com/mlnoga/medianlight/internal/device"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dev, err := device.NewDevice(device.Properties{Name: "test", Multiprocessors: 2, MaxThreadsPerBlock: 256, WarpSize: 32, GlobalMemory: 1 << 22})
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(dev)
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func writeImage(t *testing.T, fileName string) {
	t.Helper()
	img := codec.NewImage(12, 16, 3)
	for i := range img.Data {
		img.Data[i] = uint8(i * 7)
	}
	if err := img.Write(fileName); err != nil {
		t.Fatal(err)
	}
}

func TestPing(t *testing.T) {
	w := request(testRouter(t), "GET", "/api/v1/ping", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("ping = %d %s", w.Code, w.Body.String())
	}
}

func TestEngines(t *testing.T) {
	w := request(testRouter(t), "GET", "/api/v1/engines", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var res struct {
		Engines []string          `json:"engines"`
		Device  device.Properties `json:"device"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Engines) != 3 || res.Device.Name != "test" {
		t.Errorf("engines = %+v", res)
	}
}

func TestFilter(t *testing.T) {
	chdir(t, t.TempDir())
	writeImage(t, "in.png")
	r := testRouter(t)

	w := request(r, "POST", "/api/v1/filter", `{"fileName":"in.png","out":"out.png","filter":{"engine":"accelerator","kernelSize":3}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); strings.Contains(body, "Error") || !strings.Contains(body, "accelerator engine") {
		t.Errorf("unexpected log:\n%s", body)
	}
	out, err := codec.Read("out.png")
	if err != nil {
		t.Fatal(err)
	}
	if out.Rows != 12 || out.Cols != 16 {
		t.Errorf("output %s; want 16x12x3", out.DimensionsToString())
	}

	w = request(r, "POST", "/api/v1/filter", `{"fileName":"missing.png","out":"out.png"}`)
	if !strings.Contains(w.Body.String(), "Error: ") {
		t.Errorf("missing file log lacks error:\n%s", w.Body.String())
	}
}

func TestBadRequests(t *testing.T) {
	chdir(t, t.TempDir())
	writeImage(t, "in.png")
	r := testRouter(t)
	cases := []struct{ path, body string }{
		{"/api/v1/filter", `{"fileName":`},
		{"/api/v1/filter", `{"fileName":"in.png"}`},
		{"/api/v1/bench", `not json`},
		{"/api/v1/bench", `{"fileName":"in.png","engines":["warp"]}`},
		{"/api/v1/bench", `{"fileName":"in.png","border":"mirror"}`},
		{"/api/v1/bench", `{"fileName":"in.png","kernelSize":4}`},
		{"/api/v1/bench", `{"fileName":"/etc/passwd.png"}`},
		{"/api/v1/bench", `{"fileName":"in.png","runs":100000}`},
		{"/api/v1/bench", `{"fileName":"in.png","runs":0}`},
		{"/api/v1/bench", `{"fileName":"in.png","workers":-1}`},
	}
	for _, c := range cases {
		if w := request(r, "POST", c.path, c.body); w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status %d; want 400", c.path, c.body, w.Code)
		}
	}
}

func TestBench(t *testing.T) {
	chdir(t, t.TempDir())
	writeImage(t, "in.png")
	w := request(testRouter(t), "POST", "/api/v1/bench", `{"fileName":"in.png","kernelSize":5,"runs":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		Results []struct {
			Engine           string
			Durations        []int64
			MatchesReference bool
		} `json:"results"`
	}
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 3 {
		t.Fatalf("%d results; want 3", len(res.Results))
	}
	for _, r := range res.Results {
		if !r.MatchesReference || len(r.Durations) != 2 {
			t.Errorf("result %+v", r)
		}
	}
}
