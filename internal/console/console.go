// Package console is a line-oriented terminal surface for the sensor form.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/speedwagon-io/sensorform/internal/form"
	"github.com/speedwagon-io/sensorform/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorform/internal/model"
)

const helpText = `Commands:
  <field>=<value>        set a field (name, description, tags, latitude, longitude)
  set <field> <value>    same as above
  show                   print the form
  reset                  clear the form
  submit                 save sensor metadata
  help                   print this help
  quit                   exit`

var labels = map[string]string{
	form.FieldName:        "Name",
	form.FieldDescription: "Description",
	form.FieldTags:        "Tags (comma-separated)",
	form.FieldLatitude:    "Latitude",
	form.FieldLongitude:   "Longitude",
}

type Surface struct {
	log  *slog.Logger
	ctrl *form.Controller
	in   io.Reader

	outMu      sync.Mutex
	out        io.Writer
	lastStatus form.Status
	submitting bool

	wg sync.WaitGroup
}

func New(log *slog.Logger, ctrl *form.Controller, in io.Reader, out io.Writer) *Surface {
	return &Surface{
		log:  log,
		ctrl: ctrl,
		in:   in,
		out:  out,
	}
}

// Run reads commands until quit, end of input or ctx is done. It waits for
// in-flight submissions before returning.
func (s *Surface) Run(ctx context.Context) error {
	s.ctrl.SetObserver(s.onChange)
	defer s.ctrl.SetObserver(nil)

	s.println("Sensor Metadata Form")
	s.println(helpText)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	stop := make(chan struct{})
	go s.scan(stop, lines, scanErr)

	defer s.wg.Wait()
	defer close(stop)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("console stopped", slog.String("reason", ctx.Err().Error()))
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if quit := s.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (s *Surface) scan(stop <-chan struct{}, lines chan<- string, scanErr chan<- error) {
	defer close(lines)

	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-stop:
			scanErr <- nil
			return
		}
	}
	scanErr <- scanner.Err()
}

func (s *Surface) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmd, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true
	case "help":
		s.println(helpText)
		return false
	case "show":
		s.render(s.ctrl.Draft())
		return false
	case "reset":
		if err := s.ctrl.Reset(); err != nil {
			s.println("reset failed: " + err.Error())
			return false
		}
		s.println("form reset")
		return false
	case "submit":
		s.submit(ctx)
		return false
	case "set":
		field, value, _ := strings.Cut(rest, " ")
		s.change(field, value)
		return false
	}

	if field, value, ok := strings.Cut(line, "="); ok {
		s.change(field, value)
		return false
	}

	s.println(fmt.Sprintf("unknown command %q, type help", cmd))
	return false
}

func (s *Surface) change(field, value string) {
	field = strings.ToLower(strings.TrimSpace(field))
	if err := s.ctrl.Change(field, value); err != nil {
		if errors.Is(err, form.ErrUnknownField) {
			s.println(fmt.Sprintf("unknown field %q", field))
			return
		}
		s.println("change failed: " + err.Error())
	}
}

func (s *Surface) submit(ctx context.Context) {
	if missing := MissingRequired(s.ctrl.Draft()); len(missing) > 0 {
		s.println("missing required fields: " + strings.Join(missing, ", "))
		return
	}

	// A submission outlives the surface; only the transport timeout bounds it.
	done := s.ctrl.SubmitAsync(context.WithoutCancel(ctx))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := <-done
		switch {
		case err == nil:
		case errors.Is(err, form.ErrSubmitInFlight):
			s.println("a submission is already in progress")
		case errors.Is(err, form.ErrSubmitFailed):
			// shown through the status message
		default:
			s.log.Error("submit failed", sl.Err(err))
		}
	}()
}

// MissingRequired reports the required fields that are empty. A coordinate
// that did not parse counts as empty.
func MissingRequired(rec model.SensorRecord) []string {
	var missing []string
	if rec.Name == "" {
		missing = append(missing, form.FieldName)
	}
	if rec.Description == "" {
		missing = append(missing, form.FieldDescription)
	}
	if math.IsNaN(rec.Location.Latitude) {
		missing = append(missing, form.FieldLatitude)
	}
	if math.IsNaN(rec.Location.Longitude) {
		missing = append(missing, form.FieldLongitude)
	}
	return missing
}

func (s *Surface) onChange(v form.View) {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	if v.Submitting && !s.submitting {
		fmt.Fprintln(s.out, "saving sensor metadata...")
	}
	s.submitting = v.Submitting

	if v.Status == s.lastStatus {
		return
	}
	s.lastStatus = v.Status

	switch v.Status.Kind {
	case form.StatusSuccess:
		fmt.Fprintln(s.out, "[ok] "+v.Status.Text)
	case form.StatusError:
		fmt.Fprintln(s.out, "[error] "+v.Status.Text)
	}
}

func (s *Surface) render(rec model.SensorRecord) {
	values := map[string]string{
		form.FieldName:        rec.Name,
		form.FieldDescription: rec.Description,
		form.FieldTags:        rec.TagsText(),
		form.FieldLatitude:    formatCoordinate(rec.Location.Latitude),
		form.FieldLongitude:   formatCoordinate(rec.Location.Longitude),
	}

	var b strings.Builder
	b.WriteString("Sensor Metadata Form\n")
	for _, field := range form.Fields {
		fmt.Fprintf(&b, "  %-24s %s\n", labels[field]+":", values[field])
	}
	s.print(b.String())
}

func formatCoordinate(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *Surface) println(line string) {
	s.print(line + "\n")
}

func (s *Surface) print(text string) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	io.WriteString(s.out, text)
}
