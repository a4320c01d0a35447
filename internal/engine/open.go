package engine

import (
	"fmt"

	"github.com/celerix-dev/looply/pkg/sdk"
	"go.uber.org/zap"
)

// OpenOptions selects between a remote daemon and the embedded store.
type OpenOptions struct {
	// RemoteAddr, when set, connects to a looply-stored daemon.
	RemoteAddr string
	DisableTLS bool
	// DataDir and Key configure the embedded store.
	DataDir string
	Key     []byte
	Logger  *zap.Logger
}

// Open returns a Store, so the caller doesn't care if it's local or remote.
func Open(opts OpenOptions) (sdk.Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.RemoteAddr != "" {
		clientOpts := []sdk.ClientOption{sdk.WithLogger(logger)}
		if opts.DisableTLS {
			clientOpts = append(clientOpts, sdk.WithoutTLS())
		}
		client, err := sdk.Connect(opts.RemoteAddr, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("connect to store %s: %w", opts.RemoteAddr, err)
		}
		return client, nil
	}

	p, err := NewPersistence(opts.DataDir, opts.Key, logger)
	if err != nil {
		return nil, err
	}
	all, err := p.LoadAll()
	if err != nil {
		return nil, err
	}
	logger.Debug("embedded store opened",
		zap.String("data_dir", opts.DataDir),
		zap.Int("profiles", len(all)),
		zap.Bool("encrypted", opts.Key != nil),
	)
	return NewMemStore(all, p, WithLogger(logger)), nil
}
