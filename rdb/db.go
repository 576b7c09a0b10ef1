package rdb

// ResizeDB holds the RESIZEDB hint of the current database section.
type ResizeDB struct {
	DBSize     uint64
	ExpireSize uint64
}

// Resize returns the last RESIZEDB hint seen, zero when there was none.
func (d *Decoder) Resize() ResizeDB {
	return d.resize
}

func (d *Decoder) selectDB() error {
	index, err := loadCount(d.buf)
	if err != nil {
		return err
	}
	d.db = index
	d.resize = ResizeDB{}
	d.resetScratch()
	return nil
}

// Introduced in version 7: sizes of the main and expires dicts, a loading hint only.
func (d *Decoder) resizeDB() error {
	dbSize, err := loadCount(d.buf)
	if err != nil {
		return err
	}
	expireSize, err := loadCount(d.buf)
	if err != nil {
		return err
	}
	d.resize = ResizeDB{DBSize: dbSize, ExpireSize: expireSize}
	return nil
}
