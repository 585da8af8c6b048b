package database

// Config leaves report storage disabled while FileName is empty.
type Config struct {
	FileName string `envconfig:"SOD_DB_FILE" default:"sodfilter.db"`
}
