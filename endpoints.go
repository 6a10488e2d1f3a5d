package empmos

import "net/http"

const (
	apiV10 = "/v1.0"
	apiV11 = "/v1.1"

	jsonContentType = "application/json; charset=UTF-8"

	// Tags the mobile app asks the service's cache to drop after a change.
	clearsFlatTags = "WIDGETS,EPD,ELECTRO_COUNTERS,WATER_COUNTERS,APARTMENT, EPD_WIDGET,ACCRUALS_WIDGET"
)

// endpoint describes one remote operation: where it lives and which cache
// directives the service expects alongside it.
type endpoint struct {
	name    string
	path    string
	headers func(userAgent string) http.Header
}

var (
	epLogin  = endpoint{name: "auth_login", path: apiV10 + "/auth/virtualLogin", headers: loginHeaders}
	epLogout = endpoint{name: "auth_logout", path: apiV10 + "/auth/logout", headers: baseHeaders}

	epProfile = endpoint{name: "profile_get", path: apiV10 + "/profile/get", headers: forceNetworkHeaders}
	epFlats   = endpoint{name: "flat_get", path: apiV10 + "/flat/get", headers: forceNetworkHeaders}

	epAddressSearch = endpoint{name: "flat_address_search", path: apiV11 + "/flat/addressSearch", headers: postHeaders("", "")}
	epFlatAdd       = endpoint{name: "flat_add", path: apiV10 + "/flat/add", headers: postHeaders(clearsFlatTags, "")}
	epFlatDelete    = endpoint{name: "flat_delete", path: apiV10 + "/flat/delete", headers: postHeaders(clearsFlatTags, "")}

	epWaterGet  = endpoint{name: "watercounters_get", path: apiV10 + "/watercounters/get", headers: postHeaders("WATER_COUNTERS", "DEFAULT")}
	epWaterSend = endpoint{name: "watercounters_add_values", path: apiV10 + "/watercounters/addValues", headers: postHeaders("WATER_COUNTERS", "")}

	epElectroGet  = endpoint{name: "electrocounters_get", path: apiV10 + "/electrocounters/get", headers: postHeaders("ELECTRO_COUNTERS", "DEFAULT")}
	epElectroSend = endpoint{name: "electrocounters_add_values", path: apiV10 + "/electrocounters/addValues", headers: postHeaders("ELECTRO_COUNTERS", "")}

	epEPD  = endpoint{name: "epd_get", path: apiV11 + "/epd/get", headers: postHeaders("EPD", "DEFAULT")}
	epEEPD = endpoint{name: "eepd_get", path: apiV10 + "/eepd/get", headers: postHeaders("", "")}

	epCarFines = endpoint{name: "offence_get", path: apiV10 + "/offence/getOffence", headers: postHeaders("FORCE_NETWORK", "DEFAULT")}
)

// baseHeaders is sent with every request. Host and Accept-Encoding are left
// to net/http, which derives the former from the URL and handles gzip itself.
func baseHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "Keep-Alive")
	h.Set("User-Agent", userAgent)
	return h
}

func forceNetworkHeaders(userAgent string) http.Header {
	h := baseHeaders(userAgent)
	h.Set("X-Cache-ov", "15552000")
	h.Set("X-Cache-ov-mode", "FORCE_NETWORK")
	return h
}

func loginHeaders(userAgent string) http.Header {
	h := baseHeaders(userAgent)
	h.Set("Content-Type", jsonContentType)
	h.Set("Accept", "*/*")
	return h
}

func postHeaders(clearsTags, cacheMode string) func(string) http.Header {
	return func(userAgent string) http.Header {
		h := baseHeaders(userAgent)
		h.Set("Content-Type", jsonContentType)
		if clearsTags != "" {
			h.Set("X-Clears-tags", clearsTags)
		}
		if cacheMode != "" {
			h.Set("X-Cache-ov-mode", cacheMode)
		}
		return h
	}
}
