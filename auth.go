package astrocloud

import (
	"fmt"
	"net/http"
)

// Authenticator prepares an outbound request for a particular cloud service.
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// AWSAuthenticator signs requests with AWS Signature V4.
type AWSAuthenticator struct {
	signer *Signer
}

func NewAWSAuthenticator(signer *Signer) *AWSAuthenticator {
	return &AWSAuthenticator{signer: signer}
}

func (a *AWSAuthenticator) Authenticate(req *http.Request) error {
	return a.signer.SignRequest(req)
}

// AnonymousAuthenticator leaves requests unsigned, for public buckets.
type AnonymousAuthenticator struct{}

func (AnonymousAuthenticator) Authenticate(*http.Request) error {
	return nil
}

// NewAuthenticator picks the authenticator for service and payment.
// Requester-pays is only supported on S3. Azure is not supported.
func NewAuthenticator(service CloudService, payment PaymentSolution, creds Credentials, opts ...SignerOption) (Authenticator, error) {
	switch service {
	case ServiceS3:
		if payment == PaymentRequester {
			opts = append(opts, WithRequestPayer(true))
		}
		return NewAWSAuthenticator(NewSigner(creds, opts...)), nil

	case ServiceSpaces:
		if payment != PaymentOwner {
			return nil, fmt.Errorf("payment solution %s on %s: %w", payment, service, ErrNotImplemented)
		}
		return NewAWSAuthenticator(NewSigner(creds, opts...)), nil

	case ServiceGCS, ServicePublic:
		if payment != PaymentOwner {
			return nil, fmt.Errorf("payment solution %s on %s: %w", payment, service, ErrNotImplemented)
		}
		return AnonymousAuthenticator{}, nil

	case ServiceAzure:
		return nil, fmt.Errorf("cloud service %s: %w", service, ErrNotImplemented)

	default:
		return nil, fmt.Errorf("cloud service %q: %w", service, ErrNotImplemented)
	}
}
