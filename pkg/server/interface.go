/*
Package server implements msgpack IPC for language identification.

Clients write msgpack maps to stdin and read msgpack maps from stdout, one
response per request, in order. The first message written by the server is a
ready status:

	{"id": "", "status": "ready"}

Identification requests carry the text under "t":

	{"id": "req_001", "t": "Der Hund schläft im Haus"}

The response names the winning language and lists every score in tie-break
order, with the time taken in microseconds:

	{"id": "req_001", "l": "de", "n": "German", "s": [{"l": "en", "s": 3}, {"l": "de", "s": 21}, {"l": "fr", "s": 6}], "t": 42}

Other actions:

	{"id": "info_1", "action": "languages"}
	{"id": "ping_1", "action": "health"}

Failures are reported with an error message and an HTTP-like code:

	{"id": "req_002", "e": "text exceeds maximum length of 4096 bytes", "c": 413}

Profiles are built once at startup and shared by every request.
*/
package server

// Action names accepted in Request.Action. An empty action means identify.
const (
	ActionIdentify  = "identify"
	ActionLanguages = "languages"
	ActionHealth    = "health"
)

// Request is any client message
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action,omitempty"`
	Text   string `msgpack:"t,omitempty"`
}

// ScoreEntry is one language's score
type ScoreEntry struct {
	Code  string `msgpack:"l"`
	Score uint32 `msgpack:"s"`
}

// IdentifyResponse - identification result
type IdentifyResponse struct {
	ID        string       `msgpack:"id"`
	Lang      string       `msgpack:"l"`
	Name      string       `msgpack:"n"`
	Scores    []ScoreEntry `msgpack:"s"`
	TimeTaken int64        `msgpack:"t"`
}

// LanguageInfo describes one loaded language
type LanguageInfo struct {
	Code  string `msgpack:"code"`
	Name  string `msgpack:"name"`
	Sizes []int  `msgpack:"sizes,omitempty"`
	Grams []int  `msgpack:"grams,omitempty"`
}

// LanguagesResponse - loaded languages in tie-break order
type LanguagesResponse struct {
	ID        string         `msgpack:"id"`
	Status    string         `msgpack:"status"`
	Languages []LanguageInfo `msgpack:"languages"`
}

// StatusResponse - ready and health messages
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
