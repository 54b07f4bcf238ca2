package jibit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/kyc-jibit/pkg/cache"
)

var mobileParams = MobileMatch{
	MobileNumber: "+989993002010",
	NationalCode: "1111122222",
}

func TestMatchMobile_Matched(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	resp, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.IsSuccessful())
	assert.True(t, resp.Matched())
	assert.Equal(t, http.StatusOK, resp.Code())
	assert.Empty(t, resp.Errors())

	// Cached token: no token endpoint traffic at all.
	assert.Equal(t, []string{matchingPath}, f.paths())

	call := f.callsTo(matchingPath)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "application/json", call.header.Get("Accept"))
	assert.Equal(t, "application/json", call.header.Get("Content-Type"))
	assert.Equal(t, "Bearer ACCESS_TOKEN", call.header.Get("Authorization"))
	assert.Equal(t, map[string]string{"mobileNumber": "+989993002010", "nationalCode": "1111122222"}, call.body)
	assert.Equal(t, map[string]string{"mobileNumber": "+989993002010", "nationalCode": "1111122222"}, call.query)
}

func TestMatchMobile_NotMatched(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusOK, `{"matched": false}`)
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	resp, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.IsSuccessful())
	assert.False(t, resp.Matched())
}

func TestMatchMobile_BusinessError(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusOK, `{"errors":[{"code":"invalid.argument","message":"nationalCode.is_invalid"}]}`)
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	resp, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.NoError(t, err)

	assert.False(t, resp.IsSuccessful())
	require.Len(t, resp.Errors(), 1)
	assert.Equal(t, "invalid.argument", resp.Errors()[0].Code)
	assert.Equal(t, "nationalCode.is_invalid", resp.Errors()[0].Message)
	assert.Equal(t, 1, f.count(matchingPath), "business errors are not retried")
}

func TestSend_EmptyCacheGeneratesThenCalls(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	p := newTestProvider(t, f, cache.NewMemory())

	resp, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.IsSuccessful())

	assert.Equal(t, []string{generatePath, matchingPath}, f.paths())
	assert.Equal(t, "Bearer NEW_ACCESS", f.callsTo(matchingPath)[0].header.Get("Authorization"))
}

func TestSend_NeedsAuthToken(t *testing.T) {
	t.Parallel()

	doer := &failingDoer{}
	p, err := NewProvider(Options{APIKey: "k", SecretKey: "s"}, doer, cache.NewMemory(), testLogger(t))
	require.NoError(t, err)

	req := p.MatchNationalCodeWithMobileNumber(mobileParams)
	resp, err := req.Send(context.Background())
	require.ErrorIs(t, err, ErrInvalidResponse)
	assert.Nil(t, resp)

	_, err = req.Response()
	require.ErrorIs(t, err, ErrResponseNotReady)

	// Token generation failed, so the business call was never attempted.
	assert.Equal(t, int32(1), doer.calls.Load())
}

func TestSend_AuthRequiredRetriesOnce(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, r *http.Request, n int) {
		if n == 1 {
			writeJSON(w, http.StatusUnauthorized, authRequiredBody)
			return
		}

		writeJSON(w, http.StatusOK, `{"matched": true}`)
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	req := p.MatchNationalCodeWithMobileNumber(mobileParams)
	resp, err := req.Send(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.IsSuccessful())
	assert.True(t, resp.Matched())
	assert.Equal(t, []string{matchingPath, refreshPath, matchingPath}, f.paths())

	calls := f.callsTo(matchingPath)
	assert.Equal(t, "Bearer ACCESS_TOKEN", calls[0].header.Get("Authorization"))
	assert.Equal(t, "Bearer REFRESHED_ACCESS", calls[1].header.Get("Authorization"))
	assert.Equal(t, calls[0].body, calls[1].body, "retry reuses the payload")
	assert.NotContains(t, calls[1].body, "retries")

	assert.Equal(t, "REFRESHED_ACCESS", req.Parameter(ParamAccessToken))
	assert.Equal(t, "REFRESHED_REFRESH", req.Parameter(ParamRefreshToken))
}

func TestSend_AuthRequiredTwiceForces401(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusOK, authRequiredBody)
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	resp, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.NoError(t, err)

	assert.False(t, resp.IsSuccessful())
	assert.Equal(t, http.StatusUnauthorized, resp.Code())
	assert.Equal(t, CodeAuthRequired, resp.Errors()[0].Code)
	assert.Equal(t, 2, f.count(matchingPath), "no third attempt")
	assert.Equal(t, []string{matchingPath, refreshPath, matchingPath, refreshPath}, f.paths())
}

func TestSend_AuthRequiredAndRenewalFails(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusOK, authRequiredBody)
	})
	f.setRefresh(jsonHandler(http.StatusInternalServerError, ``))
	f.setGenerate(jsonHandler(http.StatusInternalServerError, ``))

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	_, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.ErrorIs(t, err, ErrInvalidResponse)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "generate token", pe.Op)
	assert.Equal(t, 1, f.count(matchingPath))
}

func TestSend_TwiceFails(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	req := p.MatchNationalCodeWithMobileNumber(mobileParams)
	first, err := req.Send(context.Background())
	require.NoError(t, err)

	_, err = req.Send(context.Background())
	require.ErrorIs(t, err, ErrRequestSent)

	_, err = req.SendData(context.Background(), Payload{"mobileNumber": "1"})
	require.ErrorIs(t, err, ErrRequestSent)

	got, err := req.Response()
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, 1, f.count(matchingPath))
}

func TestSetterAfterSendFails(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	req := p.MatchNationalCodeWithMobileNumber(MobileMatch{})
	require.NoError(t, req.SetMobileNumber("+989993002010"))
	require.NoError(t, req.SetNationalCode("1111122222"))

	_, err := req.Send(context.Background())
	require.NoError(t, err)

	require.ErrorIs(t, req.SetNationalCode("0000000000"), ErrRequestSent)
	require.ErrorIs(t, req.SetParameter("anything", "x"), ErrRequestSent)
	assert.Equal(t, "1111122222", req.Parameter(ParamNationalCode))
}

func TestResponseBeforeSendFails(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	p := newTestProvider(t, f, cache.NewMemory())

	_, err := p.MatchCardNumberWithNationalCode(CardMatch{}).Response()
	require.ErrorIs(t, err, ErrResponseNotReady)
}

func TestSend_MissingParameter(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	p := newTestProvider(t, f, cache.NewMemory())

	_, err := p.MatchNationalCodeWithMobileNumber(MobileMatch{MobileNumber: "0912"}).Send(context.Background())
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "nationalCode")
	assert.Empty(t, f.paths())
}

func TestMatchCard(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	req := p.MatchCardNumberWithNationalCode(CardMatch{
		CardNumber:   "6037 9911 1111 1111",
		NationalCode: "۱۱۱۱۱۲۲۲۲۲",
	})
	require.NoError(t, req.SetBirthDate("13700101"))
	require.NoError(t, req.SetCardNumber(" 6037991111111111 "))

	resp, err := req.Send(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Matched())

	call := f.callsTo(matchingPath)[0]
	assert.Equal(t, map[string]string{
		"cardNumber":   "6037991111111111",
		"nationalCode": "1111122222",
		"birthDate":    "13700101",
	}, call.body)
}

func TestSend_CardMissingBirthDate(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	p := newTestProvider(t, f, cache.NewMemory())

	_, err := p.MatchCardNumberWithNationalCode(CardMatch{
		CardNumber:   "6037991111111111",
		NationalCode: "1111122222",
	}).Send(context.Background())
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "birthDate")
}

func TestSend_EmptyBodyIsEmptyObject(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusOK)
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	resp, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.IsSuccessful())
	assert.False(t, resp.Matched())
	assert.NotNil(t, resp.Data())
	assert.NotNil(t, resp.Errors())
}

func TestSend_NonJSONBody(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	req := p.MatchNationalCodeWithMobileNumber(mobileParams)
	_, err := req.Send(context.Background())
	require.ErrorIs(t, err, ErrInvalidResponse)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "decode", pe.Op)
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)

	// A failed dispatch does not lock the request.
	require.NoError(t, req.SetNationalCode("2222211111"))
}

func TestSend_NonSuccessStatusWithoutErrors(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	resp, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.IsSuccessful())
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code())
}

func TestResponse_IsACopy(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	f.setMatching(func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusOK, `{"matched": true, "errors": []}`)
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	resp, err := p.MatchNationalCodeWithMobileNumber(mobileParams).Send(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.IsSuccessful())

	data := resp.Data()
	data["matched"] = false
	assert.True(t, resp.Matched())
	assert.Equal(t, true, resp.Data()["matched"])
}

func TestSend_ConcurrentSendsOnOneRequest(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "REFRESH_TOKEN")
	p := newTestProvider(t, f, store)

	req := p.MatchNationalCodeWithMobileNumber(mobileParams)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := req.Send(context.Background())

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, ErrRequestSent) {
				rejected++
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3, rejected)
	assert.Equal(t, 1, f.count(matchingPath))
}

func TestRequest_MirrorsCredential(t *testing.T) {
	t.Parallel()

	f := newFakeJibit(t)
	p := newTestProvider(t, f, cache.NewMemory())

	req := p.MatchNationalCodeWithMobileNumber(mobileParams)
	assert.Empty(t, req.Parameter(ParamAccessToken))
	assert.Equal(t, "xxxxxxxx", req.Parameter(ParamAPIKey))

	_, err := req.Send(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "NEW_ACCESS", req.Parameter(ParamAccessToken))
	assert.Equal(t, "NEW_REFRESH", req.Parameter(ParamRefreshToken))

	// Later requests start from the provider's current credential.
	next := p.MatchNationalCodeWithMobileNumber(mobileParams)
	assert.Equal(t, "NEW_ACCESS", next.Parameter(ParamAccessToken))
}

// echoMessage is a custom variant posting its payload to /v1/echo.
type echoMessage struct{}

func (echoMessage) HTTPMethod() string { return http.MethodPost }

func (echoMessage) URI(endpoint string) string { return endpoint + "/v1/echo" }

func (echoMessage) Data(p *Params) (Payload, error) {
	if err := p.Require("value"); err != nil {
		return nil, err
	}

	return Payload{"value": p.Get("value")}, nil
}

func (echoMessage) BuildResponse(req *Request, env *Envelope) Response {
	r := NewBaseResponse(req, env)
	return &r
}

func TestNewRequest_CustomVariant(t *testing.T) {
	t.Parallel()

	var gotBody map[string]string
	var gotQuery string

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/echo", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, `{"echo":"ok"}`)
	})

	store := cache.NewMemory()
	seedTokens(t, store, "ACCESS_TOKEN", "")

	p, err := NewProvider(Options{Endpoint: "http://jibit.test"}, &muxDoer{mux: mux}, store, testLogger(t))
	require.NoError(t, err)

	req := p.NewRequest(echoMessage{}, map[string]string{"value": "hello"})
	resp, err := req.Send(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.IsSuccessful())
	assert.Equal(t, "ok", resp.Data()["echo"])
	assert.Same(t, req, resp.Request())
	assert.Equal(t, map[string]string{"value": "hello"}, gotBody)
	assert.Empty(t, gotQuery, "only GET carries the payload in the query string")
}

// muxDoer serves requests in-process through a ServeMux.
type muxDoer struct {
	mux *http.ServeMux
}

func (d *muxDoer) Do(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	d.mux.ServeHTTP(rec, req)

	return rec.Result(), nil
}

func TestWithQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://x/y?a=1&b=2", withQuery("https://x/y", Payload{"b": "2", "a": "1"}))
	assert.True(t, strings.HasPrefix(withQuery("https://x/y?z=9", Payload{"a": "1"}), "https://x/y?z=9&"))
}
