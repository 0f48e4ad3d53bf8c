package httputil

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GetUintParameter parses the route parameter key as an unsigned integer.
// On failure it writes a 400 status code with the reason and returns false.
func GetUintParameter(w http.ResponseWriter, ps httprouter.Params, key string) (uint64, zerolog.Logger, bool) {
	raw := ps.ByName(key)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("expected an unsigned integer for %s", key), http.StatusBadRequest)
		return 0, zerolog.Nop(), false
	}
	return v, log.With().Str(key, raw).Logger(), true
}
