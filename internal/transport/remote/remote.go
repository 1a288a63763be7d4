// Package remote provides an SSH/SFTP transport for media directories that
// are only reachable through a remote shell session.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/mediabridge/mediabridge/internal/logging"
	"github.com/mediabridge/mediabridge/internal/transport"
)

const (
	dialTimeout  = 10 * time.Second
	probeTimeout = 3 * time.Second
)

// Config holds already-resolved SSH connection parameters. They are passed
// through, not validated beyond presence of a host.
type Config struct {
	Host     string
	User     string
	Port     int // 0 means 22
	KeyPath  string
	Password string
}

// Transport implements transport.Transport over an SSH session with SFTP.
type Transport struct {
	cfg    Config
	client *ssh.Client
	sftp   *sftp.Client
}

// Dial establishes the SSH session and opens an SFTP subsystem on it.
func Dial(_ context.Context, cfg Config) (*Transport, error) {
	if cfg.Port == 0 {
		cfg.Port = 22
	}

	var auth []ssh.AuthMethod
	if cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key %s: %w", cfg.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key %s: %w", cfg.KeyPath, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User: cfg.User,
		Auth: auth,
		// Connection parameters arrive already trusted; host keys are
		// not verified.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	})
	if err != nil {
		return nil, &transport.UnreachableError{Target: addr, Err: err}
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, &transport.UnreachableError{Target: addr, Err: err}
	}

	logging.Info("ssh transport connected",
		zap.String("host", cfg.Host),
		zap.String("user", cfg.User),
		zap.Int("port", cfg.Port))

	return &Transport{cfg: cfg, client: client, sftp: sftpClient}, nil
}

// List enumerates media files under root over one SFTP walk.
func (t *Transport) List(ctx context.Context, root string, recursive bool) ([]transport.Entry, error) {
	info, err := t.sftp.Stat(root)
	if err != nil {
		return nil, t.mapError(root, err)
	}
	if !info.IsDir() {
		return nil, &transport.NotFoundError{Path: root}
	}

	var entries []transport.Entry
	if recursive {
		walker := t.sftp.Walk(root)
		for walker.Step() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if walker.Err() != nil {
				continue
			}
			fi := walker.Stat()
			if fi == nil || fi.IsDir() || !transport.IsMedia(walker.Path()) {
				continue
			}
			entries = append(entries, remoteEntry(walker.Path(), fi))
		}
	} else {
		infos, err := t.sftp.ReadDir(root)
		if err != nil {
			return nil, t.mapError(root, err)
		}
		for _, fi := range infos {
			if fi.IsDir() {
				continue
			}
			p := path.Join(root, fi.Name())
			if !transport.IsMedia(p) {
				continue
			}
			entries = append(entries, remoteEntry(p, fi))
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func remoteEntry(p string, fi fs.FileInfo) transport.Entry {
	return transport.Entry{
		Path:    p,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		Kind:    transport.KindOf(p),
	}
}

// Fetch copies the remote file into stagingDir. It streams into a temp file
// and renames on success so a staged path is never half-written.
func (t *Transport) Fetch(ctx context.Context, remotePath, stagingDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := t.sftp.Open(remotePath)
	if err != nil {
		return "", t.mapError(remotePath, err)
	}
	defer src.Close()

	final := filepath.Join(stagingDir, transport.StageName(remotePath))
	tmp, err := os.CreateTemp(stagingDir, ".fetch-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create staging temp: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &transport.TransferError{Path: remotePath, Partial: written > 0, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &transport.TransferError{Path: remotePath, Partial: true, Err: err}
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", &transport.TransferError{Path: remotePath, Partial: true, Err: err}
	}

	logging.Debug("fetched remote file",
		zap.String("path", remotePath),
		zap.Int64("bytes", written))
	return final, nil
}

// Push uploads a local file to the remote path.
func (t *Transport) Push(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := t.sftp.Create(remotePath)
	if err != nil {
		return t.mapError(remotePath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		t.sftp.Remove(remotePath)
		return &transport.TransferError{Path: remotePath, Partial: true, Err: err}
	}
	return dst.Close()
}

// Remove deletes the remote file.
func (t *Transport) Remove(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.sftp.Remove(remotePath); err != nil {
		return t.mapError(remotePath, err)
	}
	return nil
}

// Reachable probes the session with a short deadline. SFTP calls take no
// context, so the stat runs in a goroutine and is abandoned on timeout.
func (t *Transport) Reachable(ctx context.Context) bool {
	done := make(chan error, 1)
	go func() {
		_, err := t.sftp.Stat("/")
		done <- err
	}()

	select {
	case err := <-done:
		return err == nil
	case <-time.After(probeTimeout):
		return false
	case <-ctx.Done():
		return false
	}
}

// Remote returns true: fetched files are staged copies subject to the budget.
func (t *Transport) Remote() bool { return true }

// Close shuts down the SFTP subsystem and the SSH connection.
func (t *Transport) Close() error {
	if err := t.sftp.Close(); err != nil {
		t.client.Close()
		return err
	}
	return t.client.Close()
}

func (t *Transport) mapError(p string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err):
		return &transport.NotFoundError{Path: p}
	case errors.Is(err, fs.ErrPermission) || os.IsPermission(err):
		return &transport.PermissionError{Path: p, Err: err}
	case errors.Is(err, sftp.ErrSSHFxConnectionLost):
		return &transport.UnreachableError{Target: t.cfg.Host, Err: err}
	default:
		return err
	}
}
