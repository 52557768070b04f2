package orggraph

import (
	"fmt"

	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
)

// FileSource reloads the graph from a directory file into a Holder.
type FileSource struct {
	Path   string
	Holder *Holder
	Log    *logger.Logger
}

// Reload reads the file, builds a complete graph and swaps it in.
// Policy sections are read once at startup and are not reloaded.
func (s *FileSource) Reload() error {
	f, err := config.LoadDirectory(s.Path)
	if err != nil {
		return err
	}
	g, err := FromConfig(f)
	if err != nil {
		return fmt.Errorf("build org graph: %w", err)
	}
	prev := s.Holder.Swap(g)
	if s.Log != nil {
		ev := s.Log.Info().Str("path", s.Path).Int("employees", g.Len())
		if prev != nil {
			ev = ev.Int("previous_employees", prev.Len())
		}
		if d := g.Dangling(); len(d) > 0 {
			ev = ev.Strs("dangling_reports_to", d)
		}
		ev.Msg("org graph swapped")
	}
	return nil
}
