// Package auth resolves the Gemini API key.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".noteclean"
	credentialFile = "credentials.gpg"

	// EnvAPIKey holds the key directly.
	EnvAPIKey = "GEMINI_API_KEY"
	// EnvSSMParam names an SSM SecureString parameter holding the key.
	EnvSSMParam = "NOTECLEAN_SSM_API_KEY_PARAM"
)

// ErrNotFound is returned when no source yields a key.
var ErrNotFound = errors.New("API key not found")

// ParameterGetter is the subset of the SSM client used to read the key.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. SSM parameter named by NOTECLEAN_SSM_API_KEY_PARAM (when params is non-nil)
//  3. GPG-encrypted file at ~/.noteclean/credentials.gpg
func GetAPIKey(ctx context.Context, params ParameterGetter) (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	if name := os.Getenv(EnvSSMParam); name != "" && params != nil {
		key, err := getFromSSM(ctx, params, name)
		if err == nil {
			log.Debug().Str("param", name).Msg("Using API key from SSM Parameter Store")
			return key, nil
		}
		log.Warn().Err(err).Str("param", name).Msg("SSM API key lookup failed, trying GPG")
	}

	key, err := getFromGPG()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from GPG encrypted file")
		return key, nil
	}

	log.Debug().Err(err).Msg("No API key source available")
	return "", fmt.Errorf("%w: set %s, %s or create ~/%s/%s", ErrNotFound, EnvAPIKey, EnvSSMParam, credentialDir, credentialFile)
}

func getFromSSM(ctx context.Context, params ParameterGetter, name string) (string, error) {
	out, err := params.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter: %w", err)
	}
	if out.Parameter == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	key := strings.TrimSpace(aws.ToString(out.Parameter.Value))
	if key == "" {
		return "", fmt.Errorf("parameter %s is empty", name)
	}
	return key, nil
}

// getFromGPG decrypts the API key from the GPG-encrypted credentials file.
func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}

	if passphrasePath, ok := usablePassphraseFile(); ok {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrasePath)
	}

	args = append(args, credPath)
	output, err := exec.Command("gpg", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// usablePassphraseFile returns the passphrase file path when it exists and
// is readable only by its owner.
func usablePassphraseFile() (string, bool) {
	path, err := getPassphrasePath()
	if err != nil {
		return "", false
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if mode := fi.Mode().Perm(); mode&0o077 != 0 {
		log.Warn().
			Str("passphrase_file", path).
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Passphrase file has insecure permissions (should be 0600); skipping")
		return "", false
	}
	log.Debug().Str("passphrase_file", path).Msg("Using passphrase file for GPG decryption")
	return path, true
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// getPassphrasePath looks for .gpg-passphrase next to the executable, then
// in the working directory.
func getPassphrasePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	passphrasePath := filepath.Join(filepath.Dir(exe), ".gpg-passphrase")
	if _, err := os.Stat(passphrasePath); err == nil {
		return passphrasePath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, ".gpg-passphrase"), nil
}
