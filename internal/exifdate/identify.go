package exifdate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/google/shlex"
)

// DefaultIdentifyCommand is ImageMagick's verbose identify.
const DefaultIdentifyCommand = "magick identify -verbose"

// pipeWaitDelay bounds how long Read waits for output after the tool was
// killed.
const pipeWaitDelay = 500 * time.Millisecond

// IdentifyReader shells out to an identify-style tool and scans its verbose
// output for "exif:<Name>: <value>" lines.
type IdentifyReader struct {
	command []string
	timeout time.Duration
}

// NewIdentifyReader parses command with shell quoting rules. The image path
// is appended as the last argument on every call.
func NewIdentifyReader(command string, timeout time.Duration) (*IdentifyReader, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parsing identify command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, errors.New("identify command is empty")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &IdentifyReader{command: args, timeout: timeout}, nil
}

func (r *IdentifyReader) Read(ctx context.Context, path string) (Fields, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.command[1:]...), path)
	cmd := exec.CommandContext(ctx, r.command[0], args...)
	// Delegates started by the tool inherit its pipes. Kill the whole
	// group on timeout and stop waiting on the pipes shortly after.
	killProcessGroup(cmd)
	cmd.WaitDelay = pipeWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %s", r.command[0], r.timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", r.command[0], err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", r.command[0], err)
	}

	return ParseIdentify(stdout.Bytes()), nil
}

var identifyLine = regexp.MustCompile(`^\s*exif:([A-Za-z0-9]+):\s*(.*?)\s*$`)

// ParseIdentify collects every exif:* property from identify -verbose
// output. When a property repeats, the first occurrence wins.
func ParseIdentify(out []byte) Fields {
	fields := Fields{}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := identifyLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		if _, seen := fields[m[1]]; !seen {
			fields[m[1]] = m[2]
		}
	}

	return fields
}
