// Package visualreport はビジュアルリグレッションテストの結果から比較用HTMLレポートを生成する。
package visualreport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Result は差分があった（またはベースラインがない）スクリーンショット1枚分の情報。
type Result struct {
	TestName     string
	ExpectedPath string // ベースラインがない場合は空
	ActualPath   string
	DiffPath     string // 差分画像がない場合は空
	HasChanges   bool
}

// FindResults はresultsDir直下のテストディレクトリを走査し、レポート対象のスクリーンショットを返す。
//
// 各ディレクトリの .png のうち -previous / -diff を含まないものを実際のスクリーンショットとみなし、
// ベースラインは <snapshotsDir>/<ディレクトリ名>.test.ts-snapshots/<ファイル名> とする。
// 差分画像が存在するか、ベースラインが存在しない場合に結果に含める。
// resultsDirが存在しない場合は空の結果を返す。
func FindResults(resultsDir, snapshotsDir string) ([]Result, error) {
	entries, err := os.ReadDir(resultsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var results []Result
	for _, dir := range entries {
		if !dir.IsDir() {
			continue
		}
		testPath := filepath.Join(resultsDir, dir.Name())
		files, err := os.ReadDir(testPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read test directory %s: %w", testPath, err)
		}

		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !isScreenshot(name) {
				continue
			}
			base := strings.TrimSuffix(name, ".png")
			expected := filepath.Join(snapshotsDir, dir.Name()+".test.ts-snapshots", name)
			diff := filepath.Join(testPath, base+"-diff.png")

			hasDiff := exists(diff)
			hasExpected := exists(expected)
			if !hasDiff && hasExpected {
				continue
			}

			r := Result{
				TestName:   dir.Name() + " - " + base,
				ActualPath: filepath.Join(testPath, name),
				HasChanges: true,
			}
			if hasExpected {
				r.ExpectedPath = expected
			}
			if hasDiff {
				r.DiffPath = diff
			}
			results = append(results, r)
		}
	}
	return results, nil
}

func isScreenshot(name string) bool {
	return strings.HasSuffix(name, ".png") &&
		!strings.Contains(name, "-previous") &&
		!strings.Contains(name, "-diff")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
