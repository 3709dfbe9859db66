package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool
}

// fileConfig mirrors the optional YAML config file. Flags given explicitly on
// the command line win over file values.
type fileConfig struct {
	Host        string `yaml:"host"`
	Port        uint   `yaml:"port"`
	DBUrl       string `yaml:"db_url"`
	TokenSecret string `yaml:"token_secret"`
	TokenTTL    uint   `yaml:"token_ttl"`
	Debug       bool   `yaml:"debug"`
}

func ParseFlags() (cfg Config, err error) {
	var configFile string
	flag.StringVar(&configFile, "config", "", "path to YAML config file")
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.DBUrl, "db-url", "opinio.sqlite", "path to SQLite3 DB file (default opinio.sqlite)")
	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", 120, "token TTL in seconds (default 120)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	given := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { given[f.Name] = true })

	if configFile != "" {
		var file fileConfig
		file, err = readFile(configFile)
		if err != nil {
			return
		}
		if !given["host"] && file.Host != "" {
			host = file.Host
		}
		if !given["port"] && file.Port != 0 {
			port = file.Port
		}
		if !given["db-url"] && file.DBUrl != "" {
			cfg.DBUrl = file.DBUrl
		}
		if !given["token-secret"] && file.TokenSecret != "" {
			cfg.TokenSecret = file.TokenSecret
		}
		if !given["token-ttl"] && file.TokenTTL != 0 {
			ttl = file.TokenTTL
		}
		if !given["debug"] {
			cfg.Debug = cfg.Debug || file.Debug
		}
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func readFile(path string) (file fileConfig, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	err = yaml.Unmarshal(raw, &file)
	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
