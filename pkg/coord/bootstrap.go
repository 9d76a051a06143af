package coord

import (
	"strconv"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/schema"
)

// Bootstrap ensures the cluster root and every top-level directory exist,
// then runs any pending schema.Upgrade steps. Safe to call from every
// node on every startup; idempotent via CreateRecursive.
func (c *Client) Bootstrap() error {
	if err := c.CreateRecursive(schema.RootPrefix, nil); err != nil {
		return err
	}
	for _, dir := range schema.TopLevelDirs() {
		if err := c.CreateRecursive(dir, nil); err != nil {
			return err
		}
	}

	versionPath := schema.Path(schema.KindSchemaVersion)
	ok, err := c.Exists(versionPath)
	if err != nil {
		return err
	}
	stored := 0
	if ok {
		data, err := c.Get(versionPath)
		if err != nil {
			return err
		}
		stored, err = strconv.Atoi(string(data))
		if err != nil {
			return err
		}
	} else {
		if err := c.Create(versionPath, []byte("0")); err != nil {
			return err
		}
	}

	newVersion, err := schema.Upgrade(c, stored)
	if err != nil {
		return err
	}
	if newVersion != stored {
		log.Info("coord: schema upgraded from " + strconv.Itoa(stored) + " to " + strconv.Itoa(newVersion))
		if err := c.Set(versionPath, []byte(strconv.Itoa(newVersion))); err != nil {
			return err
		}
	}
	return nil
}
