package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// Format 导出格式
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat 解析导出格式，yml 视为 yaml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unsupported export format: %q", s)
}

// FileName 生成导出文件名：sentinel_<实体名空格转下划线>_<YYYYMMDD>.<ext>
func FileName(entityName string, date time.Time, format Format) string {
	name := strings.Join(strings.Fields(entityName), "_")
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf("sentinel_%s_%s.%s", name, date.Format("20060102"), format)
}

// Encode 将报告写为指定格式
func Encode(w io.Writer, report *model.EntityReport, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported export format: %q", format)
}

// Decode 读取指定格式的报告
func Decode(r io.Reader, format Format) (*model.EntityReport, error) {
	var report model.EntityReport
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&report); err != nil {
			return nil, err
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&report); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
	return &report, nil
}

// WriteFile 将报告写入 dir 目录，返回文件路径
func WriteFile(dir string, report *model.EntityReport, format Format) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, report, format); err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(report.EntityName, report.ScreeningDate, format))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
