package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	baseFile    = "base.yaml"
	secretsFile = "secrets.env"
)

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadConfig reads configDir/base.yaml, overlays configDir/<env>.yaml when it
// exists and expands ${VAR} placeholders. Values come from secrets.env first,
// then from the process environment; unknown placeholders expand to "".
func LoadConfig(env string, configDir string) (map[string]interface{}, error) {
	files, err := Files(env, configDir)
	if err != nil {
		return nil, err
	}

	merged := map[string]interface{}{}
	for _, f := range files {
		layer, err := loadYAMLFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(f), err)
		}
		merged = mergeMaps(merged, layer)
	}

	secrets := map[string]string{}
	path := filepath.Join(dirOrDefault(configDir), secretsFile)
	if _, err := os.Stat(path); err == nil {
		if secrets, err = godotenv.Read(path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", secretsFile, err)
		}
	}

	out, _ := expand(merged, secrets).(map[string]interface{})
	return out, nil
}

// Files 返回按覆盖顺序排列的配置文件，base.yaml 必须存在
func Files(env, configDir string) ([]string, error) {
	dir := dirOrDefault(configDir)
	base := filepath.Join(dir, baseFile)
	if _, err := os.Stat(base); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", baseFile, err)
	}

	files := []string{base}
	if env == "" || env == "base" {
		return files, nil
	}
	overlay := filepath.Join(dir, env+".yaml")
	if _, err := os.Stat(overlay); err == nil {
		files = append(files, overlay)
	}
	return files, nil
}

// Decode 把合并后的 map 转换为目标结构体
func Decode(cfgMap map[string]interface{}, out interface{}) error {
	data, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return "config"
	}
	return dir
}

func loadYAMLFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// mergeMaps 合并两个 map，src 覆盖 dst，嵌套 map 递归合并
func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		result[k] = v
	}
	for k, v := range src {
		if sub, ok := v.(map[string]interface{}); ok {
			if cur, ok := result[k].(map[string]interface{}); ok {
				result[k] = mergeMaps(cur, sub)
				continue
			}
		}
		result[k] = v
	}
	return result
}

func expand(v interface{}, secrets map[string]string) interface{} {
	switch val := v.(type) {
	case string:
		return placeholder.ReplaceAllStringFunc(val, func(m string) string {
			name := placeholder.FindStringSubmatch(m)[1]
			if s, ok := secrets[name]; ok {
				return s
			}
			return os.Getenv(name)
		})
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = expand(item, secrets)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = expand(item, secrets)
		}
		return out
	default:
		return v
	}
}

// GetEnv 获取环境变量，如果未设置则返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv 获取配置环境（从环境变量 CONFIG_ENV，默认为 local）
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
