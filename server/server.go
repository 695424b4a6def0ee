// Package server contains the plumbing shared by all HTTP interfaces:
// typed JSON payloads, method-aware route tables, and binding onto a mux.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"sort"

	"github.com/go-chi/chi"
)

// FloatT is a JSON payload of a single float, {"f64": value}.
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a JSON payload of a single int, {"int": value}.
type IntT struct {
	Int int `json:"int"`
}

// StrT is a JSON payload of a single string, {"str": value}.
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a JSON payload of a single bool, {"bool": value}.
type BoolT struct {
	Bool bool `json:"bool"`
}

// XYZT is a JSON payload of a position triplet in um.
type XYZT struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HumanPayload is a union of the basic types a route may respond with.  T
// discriminates which field is populated.
type HumanPayload struct {
	T      types.BasicKind
	Float  float64
	Int    int
	String string
	Bool   bool
}

// EncodeAndRespond writes the payload to w as the single-key JSON object
// the payload type implies.
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var obj interface{}
	switch hp.T {
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.String:
		obj = StrT{Str: hp.String}
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	default:
		http.Error(w, fmt.Sprintf("go type %v cannot be converted to JSON", hp.T), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Printf("server: error encoding %+v to json: %v", obj, err)
	}
}

// MethodPath is an HTTP method and URL path pair, the key of a RouteTable.
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps method and path to handler.
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints lists the routes in the table, sorted by path then method.
func (rt RouteTable) Endpoints() []string {
	out := make([]string, 0, len(rt))
	for mp := range rt {
		out = append(out, mp.Method+" "+mp.Path)
	}
	sort.Strings(out)
	return out
}

// HTTPer is an object which exposes a route table.
type HTTPer interface {
	RT() RouteTable
}

// Bind attaches an HTTPer's routes to a chi router under stem, plus an
// endpoint listing the routes themselves.
func Bind(r chi.Router, stem string, h HTTPer) {
	rt := h.RT()
	r.Route(stem, func(r chi.Router) {
		for mp, handler := range rt {
			r.Method(mp.Method, mp.Path, handler)
		}
		r.Get("/endpoints", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(rt.Endpoints()); err != nil {
				log.Printf("server: error encoding endpoint list: %v", err)
			}
		})
	})
}

// BadRequest replies 400 with the error's text.
func BadRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// InternalError replies 500 with the error's text.
func InternalError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
