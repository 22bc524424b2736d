/* license: https://mit-license.org
 *
 *  Dao-Ke-Dao: Universal Message Module
 *
 *                                Written in 2020 by Moky <albert.moky@gmail.com>
 *
 * ==============================================================================
 * The MIT License (MIT)
 *
 * Copyright (c) 2020 Albert Moky
 * ==============================================================================
 */

package crypto

import (
	"fmt"
	"strings"

	"github.com/dimchat/dim-go/types"
)

// SymmetricKeyFactory builds or parses a SymmetricKey for one algorithm.
type SymmetricKeyFactory interface {
	GenerateSymmetricKey() SymmetricKey
	ParseSymmetricKey(dict types.StringKeyMap) (SymmetricKey, error)
}

// PrivateKeyFactory builds or parses a PrivateKey for one algorithm.
type PrivateKeyFactory interface {
	GeneratePrivateKey() (PrivateKey, error)
	ParsePrivateKey(dict types.StringKeyMap) (PrivateKey, error)
}

// PublicKeyFactory parses a PublicKey for one algorithm.
type PublicKeyFactory interface {
	ParsePublicKey(dict types.StringKeyMap) (PublicKey, error)
}

var (
	symmetricFactories = map[string]SymmetricKeyFactory{}
	privateFactories   = map[string]PrivateKeyFactory{}
	publicFactories    = map[string]PublicKeyFactory{}

	// algorithmAliases maps a legacy/lowercase/numeric spelling to its
	// canonical algorithm name (§9 "legacy aliases" open question: old
	// wire data may carry "aes"/"rsa"/"ecc" instead of the uppercase
	// canonical forms, or a bare digit for a historical type code).
	algorithmAliases = map[string]string{
		"aes": AES,
		"rsa": RSA,
		"ecc": ECC,
		"1":   AES,
		"2":   RSA,
		"3":   ECC,
	}
)

func init() {
	RegisterSymmetricKeyFactory(AES, aesKeyFactory{})
	RegisterPrivateKeyFactory(RSA, rsaKeyFactory{})
	RegisterPublicKeyFactory(RSA, rsaKeyFactory{})
	RegisterPrivateKeyFactory(ECC, eccKeyFactory{})
	RegisterPublicKeyFactory(ECC, eccKeyFactory{})
}

// CanonicalAlgorithm resolves a legacy or lowercase algorithm spelling to
// its canonical uppercase form; unknown spellings are returned upper-cased.
func CanonicalAlgorithm(name string) string {
	if canonical, ok := algorithmAliases[name]; ok {
		return canonical
	}
	upper := strings.ToUpper(name)
	if _, ok := algorithmAliases[strings.ToLower(upper)]; ok {
		return upper
	}
	return upper
}

// RegisterAlgorithmAlias lets a caller teach the registry an additional
// legacy spelling for an existing canonical algorithm name.
func RegisterAlgorithmAlias(alias, canonical string) {
	algorithmAliases[strings.ToLower(alias)] = canonical
}

func RegisterSymmetricKeyFactory(algorithm string, factory SymmetricKeyFactory) {
	symmetricFactories[algorithm] = factory
}

func RegisterPrivateKeyFactory(algorithm string, factory PrivateKeyFactory) {
	privateFactories[algorithm] = factory
}

func RegisterPublicKeyFactory(algorithm string, factory PublicKeyFactory) {
	publicFactories[algorithm] = factory
}

// GenerateSymmetricKey generates a fresh key for the given algorithm.
func GenerateSymmetricKey(algorithm string) (SymmetricKey, error) {
	factory, ok := symmetricFactories[CanonicalAlgorithm(algorithm)]
	if !ok {
		return nil, fmt.Errorf("crypto: unknown symmetric algorithm %q", algorithm)
	}
	return factory.GenerateSymmetricKey(), nil
}

// ParseSymmetricKey parses a wire dictionary into a SymmetricKey, or
// returns the shared PlainKey singleton when it has no "algorithm" field
// belonging to a registered factory and its algorithm is PLAIN.
func ParseSymmetricKey(dict types.StringKeyMap) (SymmetricKey, error) {
	if dict == nil {
		return nil, fmt.Errorf("crypto: cannot parse nil symmetric key")
	}
	algorithm, _ := dict["algorithm"].(string)
	if algorithm == PlainKeyAlgorithm {
		return GetPlainKey(), nil
	}
	factory, ok := symmetricFactories[CanonicalAlgorithm(algorithm)]
	if !ok {
		return nil, fmt.Errorf("crypto: unknown symmetric algorithm %q", algorithm)
	}
	return factory.ParseSymmetricKey(dict)
}

// GeneratePrivateKey generates a fresh asymmetric key pair for algorithm.
func GeneratePrivateKey(algorithm string) (PrivateKey, error) {
	factory, ok := privateFactories[CanonicalAlgorithm(algorithm)]
	if !ok {
		return nil, fmt.Errorf("crypto: unknown private key algorithm %q", algorithm)
	}
	return factory.GeneratePrivateKey()
}

// ParsePrivateKey parses a wire dictionary into a PrivateKey.
func ParsePrivateKey(dict types.StringKeyMap) (PrivateKey, error) {
	if dict == nil {
		return nil, fmt.Errorf("crypto: cannot parse nil private key")
	}
	algorithm, _ := dict["algorithm"].(string)
	factory, ok := privateFactories[CanonicalAlgorithm(algorithm)]
	if !ok {
		return nil, fmt.Errorf("crypto: unknown private key algorithm %q", algorithm)
	}
	return factory.ParsePrivateKey(dict)
}

// ParsePublicKey parses a wire dictionary into a PublicKey.
func ParsePublicKey(dict types.StringKeyMap) (PublicKey, error) {
	if dict == nil {
		return nil, fmt.Errorf("crypto: cannot parse nil public key")
	}
	algorithm, _ := dict["algorithm"].(string)
	factory, ok := publicFactories[CanonicalAlgorithm(algorithm)]
	if !ok {
		return nil, fmt.Errorf("crypto: unknown public key algorithm %q", algorithm)
	}
	return factory.ParsePublicKey(dict)
}

type aesKeyFactory struct{}

func (aesKeyFactory) GenerateSymmetricKey() SymmetricKey { return GenerateAESKey() }
func (aesKeyFactory) ParseSymmetricKey(dict types.StringKeyMap) (SymmetricKey, error) {
	return NewAESKey(dict), nil
}

type rsaKeyFactory struct{}

func (rsaKeyFactory) GeneratePrivateKey() (PrivateKey, error) { return GenerateRSAPrivateKey() }
func (rsaKeyFactory) ParsePrivateKey(dict types.StringKeyMap) (PrivateKey, error) {
	return ParseRSAPrivateKey(dict)
}
func (rsaKeyFactory) ParsePublicKey(dict types.StringKeyMap) (PublicKey, error) {
	return ParseRSAPublicKey(dict)
}

type eccKeyFactory struct{}

func (eccKeyFactory) GeneratePrivateKey() (PrivateKey, error) { return GenerateECCPrivateKey() }
func (eccKeyFactory) ParsePrivateKey(dict types.StringKeyMap) (PrivateKey, error) {
	return ParseECCPrivateKey(dict)
}
func (eccKeyFactory) ParsePublicKey(dict types.StringKeyMap) (PublicKey, error) {
	return ParseECCPublicKey(dict)
}
