// Package gatewaysim implements a local stand-in for the TOP router endpoint.
// It verifies signatures exactly as the real gateway does and answers in the
// requested format, which makes it usable as a sandbox for integration tests
// and local development.
package gatewaysim

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/alexbotov/alidayu/internal/log"
	"github.com/alexbotov/alidayu/internal/rng"
	"github.com/alexbotov/alidayu/pkg/alidayu"
)

// RoutePath is where the simulator serves the router endpoint
const RoutePath = "/router/rest"

// Gateway error codes
const (
	CodeServiceError     = 15
	CodeMissingMethod    = 21
	CodeInvalidMethod    = 22
	CodeInvalidSignature = 25
	CodeMissingAppKey    = 28
	CodeInvalidAppKey    = 29
	CodeInvalidTimestamp = 32
	CodeInvalidVersion   = 34
	CodeMissingArguments = 40
	CodeInvalidArguments = 41
	CodeInvalidFormat    = 43
)

// HandlerFunc serves one remote method. Returning a non-nil *APIError sends
// an error_response instead of the payload.
type HandlerFunc func(ctx context.Context, params map[string]string) (alidayu.Value, *alidayu.APIError)

// Config configures the simulator
type Config struct {
	// Apps maps app_key to app_secret
	Apps map[string]string
	// MaxSkew is the accepted distance between the timestamp parameter and
	// the simulator clock. Zero disables the check.
	MaxSkew  time.Duration
	Location *time.Location
}

// Server is the simulated gateway
type Server struct {
	apps     map[string]string
	maxSkew  time.Duration
	location *time.Location
	now      func() time.Time
	rng      *rng.Service
	logger   log.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	received []map[string]string
}

// New creates a simulator with no methods registered
func New(cfg Config, logger log.Logger) *Server {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	return &Server{
		apps:     cfg.Apps,
		maxSkew:  cfg.MaxSkew,
		location: location,
		now:      time.Now,
		rng:      rng.New(),
		logger:   logger.Named("gatewaysim"),
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for method, replacing any previous handler
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// Received returns the parameter sets of all accepted requests
func (s *Server) Received() []map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]string, len(s.received))
	copy(out, s.received)
	return out
}

// Router creates the HTTP router
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(RoutePath, s.ServeRouter).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	return r
}

// ServeRouter handles POST /router/rest
func (s *Server) ServeRouter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	params := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}

	format := alidayu.Format(params[alidayu.ParamFormat])
	if format == "" {
		format = alidayu.FormatXML
	}

	requestID, err := s.rng.GenerateToken(8)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	method := params[alidayu.ParamMethod]
	payload, apiErr := s.dispatch(r.Context(), method, format, params)
	if apiErr != nil {
		s.logger.Debug("rejected call", "method", method, "code", apiErr.Code, "msg", apiErr.Msg)
		s.write(w, format, alidayu.ErrorResponseKey, errorValue(apiErr, requestID))
		return
	}

	s.mu.Lock()
	s.received = append(s.received, params)
	s.mu.Unlock()

	s.logger.Debug("served call", "method", method)
	s.write(w, format, alidayu.ResponseKey(method), withRequestID(payload, requestID))
}

func (s *Server) dispatch(ctx context.Context, method string, format alidayu.Format, params map[string]string) (alidayu.Value, *alidayu.APIError) {
	if format.Validate() != nil {
		return alidayu.Value{}, apiError(CodeInvalidFormat, "Invalid format", "", "")
	}
	if method == "" {
		return alidayu.Value{}, apiError(CodeMissingMethod, "Missing method", "", "")
	}

	appKey := params[alidayu.ParamAppKey]
	if appKey == "" {
		return alidayu.Value{}, apiError(CodeMissingAppKey, "Missing app key", "", "")
	}
	secret, ok := s.apps[appKey]
	if !ok {
		return alidayu.Value{}, apiError(CodeInvalidAppKey, "Invalid app Key", "", "")
	}

	signMethod := alidayu.SignMethod(params[alidayu.ParamSignMethod])
	if signMethod == "" {
		signMethod = alidayu.SignMD5
	}
	if signMethod.Validate() != nil {
		return alidayu.Value{}, apiError(CodeInvalidArguments, "Invalid arguments:sign_method", "", "")
	}
	valid, err := alidayu.Verify(params, secret, signMethod, params[alidayu.ParamSign])
	if err != nil || !valid {
		return alidayu.Value{}, apiError(CodeInvalidSignature, "Invalid signature", "", "")
	}

	if params[alidayu.ParamVersion] != alidayu.APIVersion {
		return alidayu.Value{}, apiError(CodeInvalidVersion, "Invalid version", "", "")
	}
	if !s.timestampOK(params[alidayu.ParamTimestamp]) {
		return alidayu.Value{}, apiError(CodeInvalidTimestamp, "Invalid timestamp", "", "")
	}

	s.mu.RLock()
	handler, ok := s.handlers[method]
	s.mu.RUnlock()
	if !ok {
		return alidayu.Value{}, apiError(CodeInvalidMethod, "Invalid method", "", "")
	}

	return handler(ctx, params)
}

func (s *Server) timestampOK(ts string) bool {
	t, err := time.ParseInLocation(alidayu.TimestampLayout, ts, s.location)
	if err != nil {
		return false
	}
	if s.maxSkew == 0 {
		return true
	}
	skew := s.now().Sub(t)
	if skew < 0 {
		skew = -skew
	}
	return skew <= s.maxSkew
}

func (s *Server) write(w http.ResponseWriter, format alidayu.Format, root string, v alidayu.Value) {
	switch format {
	case alidayu.FormatXML:
		body, err := alidayu.EncodeXML(v, root)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/xml;charset=utf-8")
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8" ?>`))
		w.Write(body)
	default:
		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		w.Write(alidayu.EncodeJSON(alidayu.Map(map[string]alidayu.Value{root: v})))
	}
}

func apiError(code int, msg, subCode, subMsg string) *alidayu.APIError {
	return &alidayu.APIError{Code: code, Msg: msg, SubCode: subCode, SubMsg: subMsg}
}

func errorValue(e *alidayu.APIError, requestID string) alidayu.Value {
	m := map[string]alidayu.Value{
		"code":       alidayu.Int(int64(e.Code)),
		"msg":        alidayu.String(e.Msg),
		"request_id": alidayu.String(requestID),
	}
	if e.SubCode != "" {
		m["sub_code"] = alidayu.String(e.SubCode)
	}
	if e.SubMsg != "" {
		m["sub_msg"] = alidayu.String(e.SubMsg)
	}
	return alidayu.Map(m)
}

func withRequestID(payload alidayu.Value, requestID string) alidayu.Value {
	m := map[string]alidayu.Value{"request_id": alidayu.String(requestID)}
	for _, k := range payload.Keys() {
		child, _ := payload.Get(k)
		m[k] = child
	}
	return alidayu.Map(m)
}

var mobilePattern = regexp.MustCompile(`^1\d{10}$`)

// RegisterDefaults installs handlers for taobao.time.get and
// alibaba.aliqin.fc.sms.num.send.
func (s *Server) RegisterDefaults() {
	s.Handle("taobao.time.get", func(ctx context.Context, params map[string]string) (alidayu.Value, *alidayu.APIError) {
		return alidayu.Map(map[string]alidayu.Value{
			"time": alidayu.String(s.now().In(s.location).Format(alidayu.TimestampLayout)),
		}), nil
	})

	s.Handle("alibaba.aliqin.fc.sms.num.send", func(ctx context.Context, params map[string]string) (alidayu.Value, *alidayu.APIError) {
		for _, key := range []string{"sms_type", "sms_free_sign_name", "rec_num", "sms_template_code"} {
			if params[key] == "" {
				return alidayu.Value{}, apiError(CodeMissingArguments, "Missing required arguments:"+key, "", "")
			}
		}

		numbers := strings.Split(params["rec_num"], ",")
		if len(numbers) > 200 {
			return alidayu.Value{}, apiError(CodeServiceError, "Remote service error", "isv.MOBILE_COUNT_OVER_LIMIT", "too many numbers")
		}
		for _, n := range numbers {
			if !mobilePattern.MatchString(n) {
				return alidayu.Value{}, apiError(CodeServiceError, "Remote service error", "isv.MOBILE_NUMBER_ILLEGAL", "invalid mobile number "+n)
			}
		}

		model, err := s.rng.GenerateDigits(12)
		if err != nil {
			return alidayu.Value{}, apiError(CodeServiceError, "Remote service error", "isp.SYSTEM_ERROR", err.Error())
		}

		return alidayu.Map(map[string]alidayu.Value{
			"result": alidayu.Map(map[string]alidayu.Value{
				"err_code": alidayu.String("0"),
				"model":    alidayu.String(model),
				"success":  alidayu.String("true"),
			}),
		}), nil
	})
}
