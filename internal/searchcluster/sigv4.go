package searchcluster

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// SigV4Transport is an http.RoundTripper that signs each request with AWS
// Signature V4 before delegating to the base transport. OpenSearch
// Serverless uses the "aoss" service name.
type SigV4Transport struct {
	// Credentials supplies the AWS credentials used for signing.
	Credentials aws.CredentialsProvider
	// Region is the AWS region of the cluster.
	Region string
	// Service is the signing service name (default "aoss").
	Service string
	// Base is the underlying transport (default http.DefaultTransport).
	Base http.RoundTripper

	signer *v4.Signer
}

// NewSigV4Transport constructs a transport signing for the given credentials
// and region, targeting OpenSearch Serverless.
func NewSigV4Transport(creds aws.CredentialsProvider, region string) *SigV4Transport {
	return &SigV4Transport{
		Credentials: creds,
		Region:      region,
		Service:     "aoss",
		signer:      v4.NewSigner(),
	}
}

// RoundTrip signs req and forwards it to the base transport. The request
// body is buffered so its SHA-256 payload hash can be computed for signing.
func (t *SigV4Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.signer == nil {
		t.signer = v4.NewSigner()
	}
	service := t.Service
	if service == "" {
		service = "aoss"
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	payloadHash, err := hashPayload(req)
	if err != nil {
		return nil, fmt.Errorf("searchcluster: hash request body: %w", err)
	}

	creds, err := t.Credentials.Retrieve(req.Context())
	if err != nil {
		return nil, fmt.Errorf("searchcluster: retrieve credentials: %w", err)
	}

	if err := t.signer.SignHTTP(req.Context(), creds, req, payloadHash, service, t.Region, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("searchcluster: sign request: %w", err)
	}

	return base.RoundTrip(req)
}

// hashPayload returns the hex SHA-256 of the request body and resets the
// body so it can still be sent.
func hashPayload(req *http.Request) (string, error) {
	if req.Body == nil {
		return hex.EncodeToString(sha256.New().Sum(nil)), nil
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return "", err
	}
	req.Body.Close()

	req.Body = io.NopCloser(strings.NewReader(string(body)))
	req.ContentLength = int64(len(body))

	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
