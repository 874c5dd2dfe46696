package sync

import (
	"encoding/xml"
	"fmt"
	"time"
)

// The remote correspondence systems expose a tempuri-style SOAP surface for
// authentication and bulk retrieval. Envelopes are fixed-shape, so they are
// built and parsed with plain structs.

const soapNS = "http://schemas.xmlsoap.org/soap/envelope/"
const actionNS = "http://tempuri.org/"

type loginEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Login struct {
			NS       string `xml:"xmlns,attr"`
			Username string `xml:"username"`
			Password string `xml:"password"`
		} `xml:"Login"`
	} `xml:"soap:Body"`
}

func buildLoginEnvelope(username, password string) ([]byte, error) {
	var env loginEnvelope
	env.SoapNS = soapNS
	env.Body.Login.NS = actionNS
	env.Body.Login.Username = username
	env.Body.Login.Password = password

	out, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal login envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

type loginResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		LoginResponse struct {
			LoginResult string `xml:"LoginResult"`
		} `xml:"LoginResponse"`
	} `xml:"Body"`
}

func parseLoginResponse(data []byte) (string, error) {
	var env loginResponseEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("parse login response: %w", err)
	}
	if env.Body.LoginResponse.LoginResult == "" {
		return "", fmt.Errorf("no session token in response")
	}
	return env.Body.LoginResponse.LoginResult, nil
}

type syncEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Header  struct {
		AuthToken struct {
			NS    string `xml:"xmlns,attr"`
			Value string `xml:",chardata"`
		} `xml:"AuthToken"`
	} `xml:"soap:Header"`
	Body struct {
		GetCorrespondences struct {
			NS           string `xml:"xmlns,attr"`
			LastSyncTime string `xml:"lastSyncTime"`
		} `xml:"GetCorrespondences"`
	} `xml:"soap:Body"`
}

func buildSyncEnvelope(token string, lastSync time.Time) ([]byte, error) {
	var env syncEnvelope
	env.SoapNS = soapNS
	env.Header.AuthToken.NS = actionNS
	env.Header.AuthToken.Value = token
	env.Body.GetCorrespondences.NS = actionNS
	env.Body.GetCorrespondences.LastSyncTime = lastSync.UTC().Format(time.RFC3339)

	out, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal sync envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// RemoteCorrespondence is one document as the remote system reports it.
type RemoteCorrespondence struct {
	DocID   string `xml:"DocId"`
	Number  string `xml:"Number"`
	Subject string `xml:"Subject"`
}

type syncResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		GetCorrespondencesResponse struct {
			Correspondences []RemoteCorrespondence `xml:"Correspondences"`
		} `xml:"GetCorrespondencesResponse"`
	} `xml:"Body"`
}

func parseSyncResponse(data []byte) ([]RemoteCorrespondence, error) {
	var env syncResponseEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse sync response: %w", err)
	}
	return env.Body.GetCorrespondencesResponse.Correspondences, nil
}
