// Package diskimage is the disk-image registry named in spec.md §6 as
// "provided by an external module": three named collections of embedded
// disk images a host can offer a machine at startup, grounded on
// original_source/src/images/apple2_images.h's apple2_nib_images/
// apple2_po_images/apple2_msc_images tables.
package diskimage

// Image is one named, loaded disk image.
type Image struct {
	Name string
	Data []byte
}

// Registry holds the nibblized floppy images, ProDOS block images, and
// mass-storage images available to a machine, in the same three-
// collection shape as the reference firmware's image tables.
type Registry struct {
	Nib []Image
	PO  []Image
	MSC []Image
}

// AddNib appends a .nib floppy image to the registry.
func (r *Registry) AddNib(name string, data []byte) {
	r.Nib = append(r.Nib, Image{Name: name, Data: data})
}

// AddPO appends a .po block image to the registry.
func (r *Registry) AddPO(name string, data []byte) {
	r.PO = append(r.PO, Image{Name: name, Data: data})
}

// AddMSC appends a mass-storage image to the registry.
func (r *Registry) AddMSC(name string, data []byte) {
	r.MSC = append(r.MSC, Image{Name: name, Data: data})
}

// NibAt returns the nibblized image at index, and whether it exists. The
// F1-F9 disk-swap harness (spec.md §4.6) uses exactly this bounds check:
// out-of-range indices are silently ignored rather than erroring.
func (r *Registry) NibAt(index int) (Image, bool) {
	if index < 0 || index >= len(r.Nib) {
		return Image{}, false
	}
	return r.Nib[index], true
}

// POAt returns the ProDOS block image at index, and whether it exists.
func (r *Registry) POAt(index int) (Image, bool) {
	if index < 0 || index >= len(r.PO) {
		return Image{}, false
	}
	return r.PO[index], true
}

// MSCAt returns the mass-storage image at index, and whether it exists.
func (r *Registry) MSCAt(index int) (Image, bool) {
	if index < 0 || index >= len(r.MSC) {
		return Image{}, false
	}
	return r.MSC[index], true
}
