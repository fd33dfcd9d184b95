package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable installs a read-only global "platform" table describing
// info into L. Settings files use it to branch, e.g.
//
//	xmlls = { strategy = platform.native and "native" or "jar" }
func InjectPlatformTable(L *lua.LState, info *Info) error {
	tbl := L.NewTable()

	L.SetField(tbl, "os", lua.LString(info.OS))
	L.SetField(tbl, "arch", lua.LString(info.Arch))
	L.SetField(tbl, "arch_raw", lua.LString(info.ArchRaw))
	L.SetField(tbl, "version", lua.LString(info.Version))

	L.SetField(tbl, "is_linux", lua.LBool(info.IsLinux()))
	L.SetField(tbl, "is_macos", lua.LBool(info.IsMacOS()))
	L.SetField(tbl, "is_windows", lua.LBool(info.IsWindows()))
	L.SetField(tbl, "is_amd64", lua.LBool(info.IsAMD64()))
	L.SetField(tbl, "is_arm64", lua.LBool(info.IsARM64()))

	target, _ := info.Target()
	L.SetField(tbl, "native", lua.LBool(target.Supported()))
	L.SetField(tbl, "target", lua.LString(target.String()))

	if info.IsLinux() && info.Platform != "" {
		distro := L.NewTable()
		L.SetField(distro, "id", lua.LString(info.Platform))
		L.SetField(distro, "family", lua.LString(info.Family))
		L.SetField(tbl, "distro", distro)
	} else {
		L.SetField(tbl, "distro", lua.LNil)
	}

	L.SetGlobal("platform", makeReadOnly(L, tbl))
	return nil
}

// makeReadOnly makes a Lua table read-only by creating a proxy table with a metatable.
// The proxy redirects reads to the original table but prevents all writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
