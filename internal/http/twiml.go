package http

import (
	"encoding/xml"
	"net/http"
)

// twimlResponse is the TwiML document answering an inbound SMS. No message
// element means no reply is sent.
type twimlResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

func writeTwiML(w http.ResponseWriter, reply string) {
	doc := twimlResponse{}
	if reply != "" {
		doc.Messages = []string{reply}
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		http.Error(w, "failed to render reply", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}
