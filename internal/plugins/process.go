package plugins

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

const (
	requestTypeTransform = "transform"
	requestTypeFinish    = "finish"

	errorStartProcessFormat   = "start plugin process %s: %w"
	errorWriteRequestFormat   = "send request to plugin %s: %w"
	errorReadResponseFormat   = "read response from plugin %s: %w"
	errorDecodeResponseFormat = "decode response from plugin %s: %w"
	errorDecodeMetadataFormat = "decode metadata %q from plugin %s: %w"
	errorProcessExitFormat    = "plugin %s exited: %w%s"

	logMessageProcessStarted = "plugin process started"
	logFieldCommand          = "command"
)

var errProcessClosed = errors.New("plugin process closed its output")

type processRequest struct {
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
	Source   string `json:"source,omitempty"`
}

type processResponse struct {
	Code     *string                    `json:"code"`
	Metadata map[string]json.RawMessage `json:"metadata"`
	Error    string                     `json:"error"`
}

// ProcessPlugin runs an external program speaking a line-delimited JSON protocol.
// The program is started on first use and serves every file of the run.
type ProcessPlugin struct {
	name      string
	command   string
	arguments []string
	logger    *zap.Logger

	mutex   sync.Mutex
	process *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	stderr  bytes.Buffer
	closed  bool
}

var (
	_ engine.Plugin   = (*ProcessPlugin)(nil)
	_ engine.Finisher = (*ProcessPlugin)(nil)
	_ io.Closer       = (*ProcessPlugin)(nil)
)

// NewProcessFactory returns a factory starting command with arguments as a plugin
// called name.
func NewProcessFactory(name string, logger *zap.Logger, command string, arguments ...string) engine.PluginFactory {
	return func() (engine.Plugin, error) {
		return &ProcessPlugin{
			name:      name,
			command:   command,
			arguments: append([]string(nil), arguments...),
			logger:    utils.LoggerOrNop(logger),
		}, nil
	}
}

// Name returns the plugin name.
func (plugin *ProcessPlugin) Name() string {
	return plugin.name
}

// Apply sends file to the process and records the returned code and metadata.
func (plugin *ProcessPlugin) Apply(ctx context.Context, file *engine.File) error {
	response, exchangeErr := plugin.exchange(ctx, processRequest{
		Type:     requestTypeTransform,
		Filename: file.Filename,
		Source:   string(file.Source),
	})
	if exchangeErr != nil {
		return exchangeErr
	}
	if response.Code != nil && *response.Code != string(file.Source) {
		file.ReplaceRange(0, uint32(len(file.Source)), *response.Code)
	}
	return plugin.applyMetadata(file, response.Metadata)
}

// Finish asks the process for its end-of-run artifact. A process that was never
// started, or that was already stopped, has nothing to flush.
func (plugin *ProcessPlugin) Finish(ctx context.Context) (*engine.Output, error) {
	plugin.mutex.Lock()
	running := plugin.process != nil && !plugin.closed
	plugin.mutex.Unlock()
	if !running {
		return nil, nil
	}
	response, exchangeErr := plugin.exchange(ctx, processRequest{Type: requestTypeFinish})
	if exchangeErr != nil {
		return nil, exchangeErr
	}
	rawOutput, ok := response.Metadata[engine.MetadataOutput]
	if !ok {
		return nil, nil
	}
	var output engine.Output
	if decodeErr := json.Unmarshal(rawOutput, &output); decodeErr != nil {
		return nil, fmt.Errorf(errorDecodeMetadataFormat, engine.MetadataOutput, plugin.name, decodeErr)
	}
	return &output, nil
}

// Close closes the process input and waits for it to exit.
func (plugin *ProcessPlugin) Close() error {
	plugin.mutex.Lock()
	defer plugin.mutex.Unlock()
	if plugin.process == nil || plugin.closed {
		plugin.closed = true
		return nil
	}
	plugin.closed = true
	closeErr := plugin.stdin.Close()
	waitErr := plugin.process.Wait()
	if waitErr != nil {
		return plugin.exitError(waitErr)
	}
	return closeErr
}

func (plugin *ProcessPlugin) applyMetadata(file *engine.File, metadata map[string]json.RawMessage) error {
	for key, raw := range metadata {
		switch key {
		case engine.MetadataNotTransform:
			var flag bool
			if decodeErr := json.Unmarshal(raw, &flag); decodeErr != nil {
				return fmt.Errorf(errorDecodeMetadataFormat, key, plugin.name, decodeErr)
			}
			if flag {
				file.SetNotTransform()
			}
		case engine.MetadataOutput:
			var output engine.Output
			if decodeErr := json.Unmarshal(raw, &output); decodeErr != nil {
				return fmt.Errorf(errorDecodeMetadataFormat, key, plugin.name, decodeErr)
			}
			file.SetOutput(output)
		default:
			var value any
			if decodeErr := json.Unmarshal(raw, &value); decodeErr != nil {
				return fmt.Errorf(errorDecodeMetadataFormat, key, plugin.name, decodeErr)
			}
			file.Metadata[key] = value
		}
	}
	return nil
}

// exchange writes one request line and reads one response line. The process is
// killed when ctx ends first.
func (plugin *ProcessPlugin) exchange(ctx context.Context, request processRequest) (processResponse, error) {
	plugin.mutex.Lock()
	defer plugin.mutex.Unlock()
	if plugin.closed {
		return processResponse{}, fmt.Errorf(errorWriteRequestFormat, plugin.name, errProcessClosed)
	}
	if startErr := plugin.start(); startErr != nil {
		return processResponse{}, startErr
	}
	payload, encodeErr := json.Marshal(request)
	if encodeErr != nil {
		return processResponse{}, fmt.Errorf(errorWriteRequestFormat, plugin.name, encodeErr)
	}
	if _, writeErr := plugin.stdin.Write(append(payload, '\n')); writeErr != nil {
		return processResponse{}, fmt.Errorf(errorWriteRequestFormat, plugin.name, writeErr)
	}

	type readResult struct {
		line []byte
		err  error
	}
	results := make(chan readResult, 1)
	go func() {
		line, readErr := plugin.stdout.ReadBytes('\n')
		results <- readResult{line: line, err: readErr}
	}()
	var result readResult
	select {
	case <-ctx.Done():
		_ = plugin.process.Process.Kill()
		<-results
		plugin.closed = true
		_ = plugin.process.Wait()
		return processResponse{}, ctx.Err()
	case result = <-results:
	}
	if result.err != nil {
		if errors.Is(result.err, io.EOF) && len(bytes.TrimSpace(result.line)) == 0 {
			plugin.closed = true
			_ = plugin.process.Wait()
			return processResponse{}, fmt.Errorf(errorReadResponseFormat, plugin.name, plugin.exitError(errProcessClosed))
		}
		if !errors.Is(result.err, io.EOF) {
			return processResponse{}, fmt.Errorf(errorReadResponseFormat, plugin.name, result.err)
		}
	}
	var response processResponse
	if decodeErr := json.Unmarshal(result.line, &response); decodeErr != nil {
		return processResponse{}, fmt.Errorf(errorDecodeResponseFormat, plugin.name, decodeErr)
	}
	if response.Error != "" {
		return processResponse{}, errors.New(response.Error)
	}
	return response, nil
}

func (plugin *ProcessPlugin) start() error {
	if plugin.process != nil {
		return nil
	}
	process := exec.Command(plugin.command, plugin.arguments...)
	stdin, stdinErr := process.StdinPipe()
	if stdinErr != nil {
		return fmt.Errorf(errorStartProcessFormat, plugin.command, stdinErr)
	}
	stdout, stdoutErr := process.StdoutPipe()
	if stdoutErr != nil {
		return fmt.Errorf(errorStartProcessFormat, plugin.command, stdoutErr)
	}
	process.Stderr = &plugin.stderr
	if startErr := process.Start(); startErr != nil {
		return fmt.Errorf(errorStartProcessFormat, plugin.command, startErr)
	}
	plugin.logger.Debug(logMessageProcessStarted, zap.String(logFieldCommand, plugin.command))
	plugin.process = process
	plugin.stdin = stdin
	plugin.stdout = bufio.NewReader(stdout)
	return nil
}

func (plugin *ProcessPlugin) exitError(cause error) error {
	detail := strings.TrimSpace(plugin.stderr.String())
	if detail != "" {
		detail = ": " + detail
	}
	return fmt.Errorf(errorProcessExitFormat, plugin.name, cause, detail)
}
