package testinfra

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertOptions controls the throwaway PKI used by the TLS containers.
type CertOptions struct {
	// Hosts become the server certificate's DNS names or IP addresses.
	Hosts []string
	// ClientUser is the client certificate CN. With cert authentication the
	// server maps it to the role, so it defaults to PostgresUser.
	ClientUser string
	// Validity defaults to one hour.
	Validity time.Duration
}

// CertBundle holds PEM encoded certificates and keys signed by one test CA.
type CertBundle struct {
	CACert                []byte
	ServerCert, ServerKey []byte
	ClientCert, ClientKey []byte
}

// CertPaths locates a CertBundle written to disk.
type CertPaths struct {
	CACert     string
	ServerCert string
	ServerKey  string
	ClientCert string
	ClientKey  string
}

// ClientParams returns the connection parameters that make libpq and pgx
// present the client certificate and verify the server against the CA.
func (p *CertPaths) ClientParams() map[string]string {
	return map[string]string{
		"sslrootcert": p.CACert,
		"sslcert":     p.ClientCert,
		"sslkey":      p.ClientKey,
	}
}

type issued struct {
	cert    *x509.Certificate
	key     *ecdsa.PrivateKey
	certPEM []byte
	keyPEM  []byte
}

// GenerateCertBundle creates a CA plus a server and a client certificate.
func GenerateCertBundle(opts CertOptions) (*CertBundle, error) {
	if opts.ClientUser == "" {
		opts.ClientUser = PostgresUser
	}
	if opts.Validity <= 0 {
		opts.Validity = time.Hour
	}
	notBefore := time.Now().Add(-5 * time.Minute)
	notAfter := notBefore.Add(opts.Validity)

	ca, err := issue("CA", &x509.Certificate{
		Subject:               pkix.Name{CommonName: "pgseed-test-ca", Organization: []string{"pgseed"}},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}, nil)
	if err != nil {
		return nil, err
	}

	serverTemplate := &x509.Certificate{
		Subject:     pkix.Name{CommonName: "pgseed-test-server"},
		NotBefore:   notBefore,
		NotAfter:    notAfter,
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range opts.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			serverTemplate.IPAddresses = append(serverTemplate.IPAddresses, ip)
		} else {
			serverTemplate.DNSNames = append(serverTemplate.DNSNames, h)
		}
	}
	server, err := issue("server", serverTemplate, ca)
	if err != nil {
		return nil, err
	}

	client, err := issue("client", &x509.Certificate{
		Subject:     pkix.Name{CommonName: opts.ClientUser},
		NotBefore:   notBefore,
		NotAfter:    notAfter,
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}, ca)
	if err != nil {
		return nil, err
	}

	return &CertBundle{
		CACert:     ca.certPEM,
		ServerCert: server.certPEM,
		ServerKey:  server.keyPEM,
		ClientCert: client.certPEM,
		ClientKey:  client.keyPEM,
	}, nil
}

// issue signs template with parent, or self-signs when parent is nil.
func issue(role string, template *x509.Certificate, parent *issued) (*issued, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate %s key: %w", role, err)
	}
	template.SerialNumber, err = rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, fmt.Errorf("generate %s serial: %w", role, err)
	}

	signer, signerCert := key, template
	if parent != nil {
		signer, signerCert = parent.key, parent.cert
	}
	der, err := x509.CreateCertificate(rand.Reader, template, signerCert, &key.PublicKey, signer)
	if err != nil {
		return nil, fmt.Errorf("create %s certificate: %w", role, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse %s certificate: %w", role, err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("encode %s key: %w", role, err)
	}

	return &issued{
		cert:    cert,
		key:     key,
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}, nil
}

// WriteToDir writes the bundle into dir. Keys are 0600 because libpq
// refuses a client key readable by group or others.
func (b *CertBundle) WriteToDir(dir string) (*CertPaths, error) {
	paths := &CertPaths{
		CACert:     filepath.Join(dir, "root.crt"),
		ServerCert: filepath.Join(dir, "server.crt"),
		ServerKey:  filepath.Join(dir, "server.key"),
		ClientCert: filepath.Join(dir, "postgresql.crt"),
		ClientKey:  filepath.Join(dir, "postgresql.key"),
	}

	files := []struct {
		path string
		data []byte
		perm os.FileMode
	}{
		{paths.CACert, b.CACert, 0o644},
		{paths.ServerCert, b.ServerCert, 0o644},
		{paths.ServerKey, b.ServerKey, 0o600},
		{paths.ClientCert, b.ClientCert, 0o644},
		{paths.ClientKey, b.ClientKey, 0o600},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, f.perm); err != nil {
			return nil, fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
		}
	}

	return paths, nil
}
