package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"sciencebindu-backend/internal/cache"
)

const fatihaEditions = `{"code":200,"status":"OK","data":[
 {"number":1,"name":"سُورَةُ ٱلْفَاتِحَةِ","englishName":"Al-Faatiha","englishNameTranslation":"The Opening","revelationType":"Meccan","numberOfAyahs":7,
  "ayahs":[{"number":1,"text":"بِسْمِ ٱللَّهِ","numberInSurah":1}],"edition":{"identifier":"quran-uthmani"}},
 {"number":1,"name":"سُورَةُ ٱلْفَاتِحَةِ","englishName":"Al-Faatiha","englishNameTranslation":"The Opening","revelationType":"Meccan","numberOfAyahs":7,
  "ayahs":[{"number":1,"text":"শুরু করছি আল্লাহর নামে","numberInSurah":1}],"edition":{"identifier":"bn.bengali"}}
]}`

type quranFixture struct {
	svc     *QuranService
	backend *scriptedBackend
	hits    *int
	status  *int
}

func newQuranFixture(t *testing.T) *quranFixture {
	t.Helper()

	hits, status := 0, http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/v1/surah/1/editions/quran-uthmani,bn.bengali" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, fatihaEditions)
	}))
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	backend := &scriptedBackend{}
	gateway, _ := newTestGateway(backend)
	svc := NewQuranService(srv.URL+"/v1/", cache.NewJSONCache(rdb, "surah", 24*time.Hour), gateway)
	return &quranFixture{svc: svc, backend: backend, hits: &hits, status: &status}
}

func TestQuranService_SurahSplitsEditionsAndCaches(t *testing.T) {
	f := newQuranFixture(t)

	for i := 0; i < 2; i++ {
		surah, err := f.svc.Surah(context.Background(), 1)
		if err != nil {
			t.Fatalf("Surah() error = %v", err)
		}
		if surah.EnglishName != "Al-Faatiha" || surah.NumberOfAyahs != 7 {
			t.Fatalf("surah = %+v", surah)
		}
		if len(surah.Arabic) != 1 || surah.Arabic[0].Text != "بِسْمِ ٱللَّهِ" {
			t.Fatalf("arabic = %+v", surah.Arabic)
		}
		if len(surah.Bengali) != 1 || surah.Bengali[0].Text != "শুরু করছি আল্লাহর নামে" {
			t.Fatalf("bengali = %+v", surah.Bengali)
		}
	}
	if *f.hits != 1 {
		t.Fatalf("upstream hits = %d, want 1", *f.hits)
	}
}

func TestQuranService_SurahRange(t *testing.T) {
	f := newQuranFixture(t)
	for _, n := range []int{0, -1, 115} {
		var ve *ValidationError
		if _, err := f.svc.Surah(context.Background(), n); !errors.As(err, &ve) {
			t.Fatalf("Surah(%d) err = %v, want ValidationError", n, err)
		}
	}
	if *f.hits != 0 {
		t.Fatalf("upstream called for invalid numbers")
	}
}

func TestQuranService_UpstreamFailureIsNotCached(t *testing.T) {
	f := newQuranFixture(t)
	*f.status = http.StatusBadGateway

	if _, err := f.svc.Surah(context.Background(), 1); !errors.Is(err, ErrQuranUnavailable) {
		t.Fatalf("err = %v, want ErrQuranUnavailable", err)
	}

	*f.status = http.StatusOK
	if _, err := f.svc.Surah(context.Background(), 1); err != nil {
		t.Fatalf("Surah() after recovery error = %v", err)
	}
	if *f.hits != 2 {
		t.Fatalf("upstream hits = %d, want 2", *f.hits)
	}
}

func TestQuranService_Infographic(t *testing.T) {
	f := newQuranFixture(t)
	f.backend.reply = "```json\n{\"summary\":\"তাওহিদ\",\"stats\":{\"commands\":2,\"prohibitions\":1},\"lessons\":[\"দোয়া\"],\"virtues\":\"উম্মুল কুরআন\"}\n```"

	got, err := f.svc.Infographic(context.Background(), 1)
	if err != nil {
		t.Fatalf("Infographic() error = %v", err)
	}
	if got.Summary != "তাওহিদ" || got.Stats.Commands != 2 || got.Stats.Prohibitions != 1 || len(got.Lessons) != 1 {
		t.Fatalf("infographic = %+v", got)
	}
	if !f.backend.last.JSON {
		t.Fatalf("infographic must request JSON output")
	}
	if !strings.Contains(f.backend.last.Prompt, "Analyze Surah Al-Faatiha (ID: 1)") {
		t.Fatalf("prompt = %q", f.backend.last.Prompt)
	}
}

func TestQuranService_InfographicMalformed(t *testing.T) {
	f := newQuranFixture(t)
	f.backend.reply = `{"summary":"x","stats":{"commands":"many"},"lessons":[],"virtues":""}`

	_, err := f.svc.Infographic(context.Background(), 1)
	if !errors.Is(err, ErrAIMalformed) {
		t.Fatalf("err = %v, want ErrAIMalformed", err)
	}
}

func TestQuranService_Ask(t *testing.T) {
	f := newQuranFixture(t)
	f.backend.reply = "• সাত আয়াত\n"

	got, err := f.svc.Ask(context.Background(), 1, "  কয়টি আয়াত?  ")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.Answer != "• সাত আয়াত" || got.Question != "কয়টি আয়াত?" {
		t.Fatalf("answer = %+v", got)
	}
	prompt := f.backend.last.Prompt
	if !strings.HasPrefix(prompt, "Context: Surah Al-Faatiha.") || !strings.HasSuffix(prompt, "Question: কয়টি আয়াত?") {
		t.Fatalf("prompt = %q", prompt)
	}

	var ve *ValidationError
	if _, err := f.svc.Ask(context.Background(), 1, " "); !errors.As(err, &ve) {
		t.Fatalf("blank question err = %v, want ValidationError", err)
	}
}
