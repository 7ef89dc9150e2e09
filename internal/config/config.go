// Package config loads the coordinator's settings from a TOML file,
// grounded on the toml-tagged struct + toml.NewDecoder(file).Decode idiom
// in go-kgp's conf package; defaults apply wherever the file omits a key.
package config

import (
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type TimersConf struct {
	DisconnectForgiveness time.Duration `toml:"disconnect_forgiveness"`
	AutoResignByChoice    time.Duration `toml:"auto_resign_by_choice"`
	AutoResignNotByChoice time.Duration `toml:"auto_resign_not_by_choice"`
	AFKAutoResign         time.Duration `toml:"afk_auto_resign"`
}

type ServerConf struct {
	ListenAddr string `toml:"listen_addr"`
}

type DatabaseConf struct {
	DSN string `toml:"dsn"`
}

type AuthConf struct {
	JWTSecretFile string `toml:"jwt_secret_file"`
}

type Conf struct {
	Server   ServerConf   `toml:"server"`
	Database DatabaseConf `toml:"database"`
	Auth     AuthConf     `toml:"auth"`
	Timers   TimersConf   `toml:"timers"`
}

var defaultConf = Conf{
	Server:   ServerConf{ListenAddr: ":8080"},
	Database: DatabaseConf{DSN: "matchcoordinator.db"},
	Auth:     AuthConf{JWTSecretFile: "JWT_SECRET"},
	Timers: TimersConf{
		DisconnectForgiveness: 5 * time.Second,
		AutoResignByChoice:    20 * time.Second,
		AutoResignNotByChoice: 60 * time.Second,
		AFKAutoResign:         20 * time.Second,
	},
}

// Load reads path and decodes it over a copy of the defaults; a missing
// file is not an error, matching LoadConf's "fall back to defaults"
// behavior for an absent go-kgp.toml.
func Load(path string) (Conf, error) {
	c := defaultConf

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, err
	}
	defer file.Close()

	if _, err := toml.NewDecoder(file).Decode(&c); err != nil {
		return Conf{}, err
	}
	return c, nil
}

// Dump serializes c back to TOML, mirroring Conf.Dump's use for
// operators to inspect the effective configuration.
func Dump(c Conf, w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
