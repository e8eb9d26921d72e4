package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/nexusflow/nexusflow-client/internal/adapters/gemini"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/model"
)

// Template names, also used as the metrics label.
const (
	templateRoutes    = "routes"
	templateNearby    = "nearby"
	templateScheduled = "scheduled"
	templatePlaces    = "places"
)

// Server answers generateContent calls from canned templates chosen by the
// response schema shape.
type Server struct {
	log      zerolog.Logger
	requests *prometheus.CounterVec
}

func NewServer(log zerolog.Logger, reg prometheus.Registerer) *Server {
	s := &Server{
		log: log,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexusflow",
				Subsystem: "devmodel",
				Name:      "requests_total",
				Help:      "generateContent calls by template.",
			},
			[]string{"model", "template"},
		),
	}
	reg.MustRegister(s.requests)
	return s
}

// GenerateContent handles POST /v1beta/models/{model}:generateContent.
func (s *Server) GenerateContent(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")

	var req gemini.GenerateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid JSON payload")
		return
	}
	prompt := promptText(req)
	if prompt == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "contents must not be empty")
		return
	}
	if req.GenerationConfig == nil || req.GenerationConfig.ResponseSchema == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "responseSchema is required")
		return
	}

	name, ok := templateFor(req.GenerationConfig.ResponseSchema)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "unsupported responseSchema")
		return
	}
	text, err := render(name, quoted(prompt))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	s.requests.WithLabelValues(modelName, name).Inc()
	caller, _ := CallerFromContext(r.Context())
	s.log.Info().Str("model", modelName).Str("template", name).Str("caller", caller).Msg("generate content")

	writeJSON(w, http.StatusOK, gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content:      gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}},
			FinishReason: "STOP",
		}},
	})
}

func promptText(req gemini.GenerateContentRequest) string {
	var s string
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			s += p.Text
		}
	}
	return s
}

// templateFor picks the template whose output matches schema.
func templateFor(schema *model.Schema) (string, bool) {
	if schema.Type != model.TypeArray || schema.Items == nil {
		return "", false
	}
	items := schema.Items
	switch items.Type {
	case model.TypeString:
		return templatePlaces, true
	case model.TypeObject:
		if _, ok := items.Properties["segments"]; ok {
			return templateRoutes, true
		}
		if _, ok := items.Properties["scheduledTime"]; ok {
			return templateScheduled, true
		}
		if _, ok := items.Properties["rating"]; ok {
			return templateNearby, true
		}
	}
	return "", false
}

var quotedRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)

// quoted returns the Go-quoted arguments embedded in a prompt, in order.
func quoted(prompt string) []string {
	var out []string
	for _, m := range quotedRe.FindAllString(prompt, -1) {
		if s, err := strconv.Unquote(m); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func arg(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

type segment struct {
	Mode        string `json:"mode"`
	Duration    string `json:"duration"`
	Instruction string `json:"instruction"`
	Distance    string `json:"distance,omitempty"`
}

type route struct {
	Duration     string    `json:"duration"`
	Cost         string    `json:"cost"`
	ComfortLevel string    `json:"comfortLevel"`
	Summary      string    `json:"summary"`
	Segments     []segment `json:"segments"`
}

type profile struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Rating        float64 `json:"rating"`
	Destination   string  `json:"destination"`
	ScheduledTime string  `json:"scheduledTime,omitempty"`
}

var travellers = []struct {
	name   string
	rating float64
}{
	{"Priya Raman", 4.9},
	{"Marcus Bell", 4.6},
	{"Lena Ortiz", 4.8},
}

func render(name string, args []string) (string, error) {
	var v any
	switch name {
	case templatePlaces:
		q := arg(args, 0, "Central")
		v = []string{q + " Metro Station", q + " Bus Terminal", q + " Market", q + " Tech Park", q + " Junction"}
	case templateRoutes:
		v = routesFor(arg(args, 0, "Current Location"), arg(args, 1, "City Centre"))
	case templateNearby:
		v = profilesFor("n", arg(args, 0, "City Centre"), "")
	case templateScheduled:
		v = profilesFor("p", arg(args, 0, "City Centre"), arg(args, 1, "Tomorrow at 09:00 AM"))
	default:
		return "", fmt.Errorf("unknown template %q", name)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func routesFor(origin, dest string) []route {
	return []route{
		{
			Duration: "38 mins", Cost: "₹55", ComfortLevel: "Medium", Summary: "Walk → Metro → Walk",
			Segments: []segment{
				{Mode: "WALKING", Duration: "6 mins", Instruction: fmt.Sprintf("Walk 400m from %s to the nearest metro station", origin), Distance: "400m"},
				{Mode: "METRO", Duration: "27 mins", Instruction: "Ride the metro 7 stops", Distance: "11km"},
				{Mode: "WALKING", Duration: "5 mins", Instruction: fmt.Sprintf("Walk 300m to %s", dest), Distance: "300m"},
			},
		},
		{
			Duration: "31 mins", Cost: "₹240", ComfortLevel: "High", Summary: "Cab",
			Segments: []segment{
				{Mode: "CAB", Duration: "31 mins", Instruction: fmt.Sprintf("Cab from %s to %s", origin, dest), Distance: "12km"},
			},
		},
		{
			Duration: "46 mins", Cost: "₹35", ComfortLevel: "Low", Summary: "Bus → Auto",
			Segments: []segment{
				{Mode: "BUS", Duration: "34 mins", Instruction: "Take the express bus towards the city", Distance: "10km"},
				{Mode: "AUTO", Duration: "12 mins", Instruction: fmt.Sprintf("Auto from the bus stop to %s", dest), Distance: "2.5km"},
			},
		},
	}
}

func profilesFor(prefix, dest, slot string) []profile {
	out := make([]profile, 0, len(travellers))
	for i, t := range travellers {
		out = append(out, profile{
			ID:            fmt.Sprintf("%s%d", prefix, i+1),
			Name:          t.name,
			Rating:        t.rating,
			Destination:   dest,
			ScheduledTime: slot,
		})
	}
	return out
}
