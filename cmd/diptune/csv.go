package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smclab/dipsim/dip"
	"github.com/smclab/dipsim/simulate"
)

func createCSV(path string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("csv: cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv: cannot open %s: %w", path, err)
	}
	return f, csv.NewWriter(f), nil
}

// writeTrajectoryCSV exports time, state, control and sliding-surface
// series of one episode.
func writeTrajectoryCSV(path string, o *simulate.Outcome) error {
	f, w, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	header := []string{"t", "x", "theta1", "theta2", "xdot", "omega1", "omega2", "u", "s"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: header: %w", err)
	}

	for i, t := range o.Times {
		row := make([]string, 0, len(header))
		row = append(row, fmt.Sprintf("%.15g", t))
		for c := 0; c < dip.StateDim; c++ {
			row = append(row, fmt.Sprintf("%.15g", o.States[i][c]))
		}
		// Control and sigma lag the state log by one sample.
		u, s := 0.0, 0.0
		if i < len(o.Controls) {
			u, s = o.Controls[i], o.Sigma[i]
		}
		row = append(row, fmt.Sprintf("%.15g", u), fmt.Sprintf("%.15g", s))
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: row %d: %w", i, err)
		}
	}
	return nil
}

// writeCostHistoryCSV exports the per-iteration global best cost.
func writeCostHistoryCSV(path string, history []float64) error {
	f, w, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	if err := w.Write([]string{"iteration", "best_cost"}); err != nil {
		return fmt.Errorf("csv: header: %w", err)
	}
	for i, c := range history {
		if err := w.Write([]string{fmt.Sprintf("%d", i), fmt.Sprintf("%.15g", c)}); err != nil {
			return fmt.Errorf("csv: row %d: %w", i, err)
		}
	}
	return nil
}
